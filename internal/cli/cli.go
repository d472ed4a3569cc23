// Package cli implements the redline command line: diff two texts, apply a replacement to a document as tracked changes, insert tracked text, ask a model for a
// rewrite, and serve the HTTP API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"github.com/codalotl/redline/internal/config"
	"github.com/codalotl/redline/internal/llmcomplete"
	"github.com/codalotl/redline/internal/q/health"
)

// Version is the redline version. It is a var (not a const) so build tooling can override it (for example via `-ldflags "-X .../internal/cli.Version=1.2.3"`).
var Version = "0.1.0"

// In/Out/Err override standard I/O. If nil, defaults are used. Overriding is useful for testing.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// NewConversation replaces the model backend used by `suggest` and `serve`. Nil means a real OpenAI-compatible backend built from config.
	NewConversation llmcomplete.Factory
}

// CLI is the kong grammar. Global flags come first, then one field per command.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file (YAML)." env:"REDLINE_CONFIG"`
	Verbose bool             `short:"v" help:"Enable debug logging."`
	LogFile string           `help:"Write logs to this file instead of stderr."`
	Color   string           `enum:"auto,always,never" default:"auto" help:"Colorize output (${enum})."`
	Version kong.VersionFlag `help:"Show version and exit."`

	Diff    DiffCmd    `cmd:"" help:"Show the word-level redline between two texts."`
	Apply   ApplyCmd   `cmd:"" help:"Apply a replacement to a document as minimal tracked changes."`
	Insert  InsertCmd  `cmd:"" help:"Insert text as one tracked change, optionally with a comment."`
	Suggest SuggestCmd `cmd:"" help:"Ask the model to rewrite a passage, then redline the document with its answer."`
	Serve   ServeCmd   `cmd:"" help:"Serve the HTTP API."`
	Cfg     ConfigCmd  `cmd:"" name:"config" help:"Print the effective configuration."`
}

// Env is bound into every command's Run method.
type Env struct {
	Ctx    context.Context
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Config *config.Config
	Logger *slog.Logger
	Color  bool

	newConversation llmcomplete.Factory
	stdinUsed       bool
}

// conversations returns the model backend for this run.
func (e *Env) conversations() llmcomplete.Factory {
	if e.newConversation != nil {
		return e.newConversation
	}
	return llmcomplete.NewFactory(e.Config.LLM())
}

// exitRequest is panicked by kong's exit hook (after --help or --version) and recovered in Run.
type exitRequest int

// Run runs the CLI with args (typically you'd use os.Args).
//
// It returns a recommended exit code (0, 1, or 2) and an error, if any:
//   - 0 -> err == nil
//   - 1 -> err != nil, but the structure of args is sound (flags are correct, etc).
//   - 2 -> err != nil, args parse error or misuse of flags, etc.
//
// Note that in cases of errors, Run has already displayed an error message to opts.Err || Stderr. Callers may use os.Exit with the exit code.
func Run(args []string, opts *RunOptions) (code int, err error) {
	argv := args
	if len(argv) > 0 {
		argv = argv[1:]
	}

	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	var errW io.Writer = os.Stderr
	var factory llmcomplete.Factory
	if opts != nil {
		if opts.In != nil {
			in = opts.In
		}
		if opts.Out != nil {
			out = opts.Out
		}
		if opts.Err != nil {
			errW = opts.Err
		}
		factory = opts.NewConversation
	}

	defer func() {
		if r := recover(); r != nil {
			req, ok := r.(exitRequest)
			if !ok {
				panic(r)
			}
			code, err = int(req), nil
			if code != 0 {
				err = fmt.Errorf("exit %d", code)
			}
		}
	}()

	var root CLI
	parser, err := kong.New(&root,
		kong.Name("redline"),
		kong.Description("Surgical redlining: turn a rewritten passage into minimal word-level tracked changes."),
		kong.Writers(out, errW),
		kong.Exit(func(code int) { panic(exitRequest(code)) }),
		kong.Vars{"version": Version},
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		return 2, err
	}
	kctx, err := parser.Parse(argv)
	if err != nil {
		fmt.Fprintf(errW, "redline: error: %v\n", err)
		return 2, err
	}

	env, closeLog, err := newEnv(&root, in, out, errW)
	if err != nil {
		fmt.Fprintf(errW, "redline: error: %v\n", err)
		return 2, err
	}
	defer closeLog()
	env.newConversation = factory

	if err := kctx.Run(env); err != nil {
		health.LogErr(env.Logger, err, "command", kctx.Command())
		fmt.Fprintf(errW, "redline: %s\n", health.UserMessage(err))
		return 1, err
	}
	return 0, nil
}

// newEnv loads .env files and config, and sets up logging. The returned func closes the log file, if any.
func newEnv(root *CLI, in io.Reader, out, errW io.Writer) (*Env, func(), error) {
	if _, err := config.LoadDotEnv(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, nil, err
	}

	closeLog := func() {}
	var logW io.Writer = errW
	level := slog.LevelWarn // keep stderr quiet unless asked
	logFile := root.LogFile
	if logFile == "" {
		logFile = cfg.Log.File
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		logW, level, closeLog = f, cfg.LogLevel(), func() { _ = f.Close() }
	}
	if root.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logW, &slog.HandlerOptions{Level: level}))

	return &Env{
		Ctx:    context.Background(),
		In:     in,
		Out:    out,
		Err:    errW,
		Config: cfg,
		Logger: logger,
		Color:  useColor(root.Color, out),
	}, closeLog, nil
}

func useColor(mode string, out io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readInput reads path, or stdin if path is "-". Stdin can be read only once per run.
func (e *Env) readInput(path string) (string, error) {
	if path != "-" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if e.stdinUsed {
		return "", errors.New("stdin (-) can only be used once")
	}
	e.stdinUsed = true
	b, err := io.ReadAll(e.In)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
