package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/codalotl/redline/internal/diff"
	"github.com/codalotl/redline/internal/memdoc"
	"github.com/codalotl/redline/internal/q/health"
	"github.com/codalotl/redline/internal/redline"
	"github.com/codalotl/redline/internal/rewrite"
	"github.com/codalotl/redline/internal/server"
)

type DiffCmd struct {
	Original    string `arg:"" help:"File with the original text (- for stdin)."`
	Replacement string `arg:"" help:"File with the replacement text (- for stdin)."`
	JSON        bool   `help:"Print the edit script as JSON."`
	Raw         bool   `help:"Diff the texts as given, without normalization or markdown stripping."`
}

func (c *DiffCmd) Run(env *Env) error {
	original, err := env.readInput(c.Original)
	if err != nil {
		return err
	}
	replacement, err := env.readInput(c.Replacement)
	if err != nil {
		return err
	}

	var script diff.Script
	if c.Raw {
		script = diff.DiffWords(original, replacement)
	} else {
		script = redline.Prepare(original, replacement)
	}

	if c.JSON {
		enc := json.NewEncoder(env.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(script)
	}
	_, err = fmt.Fprintln(env.Out, script.RenderInline(env.Color))
	return err
}

type ApplyCmd struct {
	DocFlags    `embed:""`
	SelectFlags `embed:""`

	Replacement string `required:"" help:"File with the replacement text (- for stdin)."`
	Comment     string `help:"Comment to attach to the redlined selection."`
	NoTrack     bool   `help:"Edit without tracking changes."`
}

func (c *ApplyCmd) Run(env *Env) error {
	replacement, err := env.readInput(c.Replacement)
	if err != nil {
		return err
	}
	doc, err := c.open(env, !c.NoTrack)
	if err != nil {
		return err
	}
	if err := c.apply(doc); err != nil {
		return err
	}

	res, _, runErr := redline.RedlineSelection(env.Ctx, doc, replacement, env.redlineOptions())
	if runErr != nil && !isStepError(runErr) {
		return runErr
	}
	if runErr == nil {
		redline.Annotate(env.Ctx, doc, c.Comment, env.redlineOptions())
	}
	// A StepError leaves earlier steps committed, so the partial document is still shown and saved.
	if err := c.finish(env, doc); err != nil {
		return err
	}
	if c.Comment != "" {
		printComments(env, doc)
	}
	for _, sk := range res.Skips {
		fmt.Fprintf(env.Err, "skipped %s\n", sk)
	}
	if runErr != nil {
		return redlineFailed(runErr)
	}
	return nil
}

type InsertCmd struct {
	DocFlags    `embed:""`
	SelectFlags `embed:""`

	Text    string `required:"" help:"File with the text to insert (- for stdin). Markdown emphasis and headers are stripped."`
	Comment string `help:"Comment to attach to the inserted text."`
	At      int    `default:"-1" help:"Insert at this byte offset. Without --at or a selection, text is appended to the end."`
	NoTrack bool   `help:"Insert without tracking changes."`
}

func (c *InsertCmd) Run(env *Env) error {
	text, err := env.readInput(c.Text)
	if err != nil {
		return err
	}
	doc, err := c.open(env, !c.NoTrack)
	if err != nil {
		return err
	}
	switch {
	case c.At >= 0:
		if err := doc.Select(c.At, c.At); err != nil {
			return err
		}
	case c.SelectFlags.isSet():
		if err := c.apply(doc); err != nil {
			return err
		}
	default:
		n := doc.Len()
		if err := doc.Select(n, n); err != nil {
			return err
		}
	}

	if err := redline.InsertTracked(env.Ctx, doc, text, c.Comment, env.redlineOptions()); err != nil {
		return err
	}
	if err := c.finish(env, doc); err != nil {
		return err
	}
	printComments(env, doc)
	return nil
}

func printComments(env *Env, doc *memdoc.Document) {
	for _, cm := range doc.Comments() {
		fmt.Fprintf(env.Out, "comment by %s on %q: %s\n", cm.Author, cm.Quote, cm.Text)
	}
}

type SuggestCmd struct {
	DocFlags    `embed:""`
	SelectFlags `embed:""`

	Instructions string `required:"" short:"i" help:"How the passage should be rewritten."`
	Context      string `help:"File with reference context (policy, precedent) the rewrite must follow."`
	DryRun       bool   `help:"Print the suggestion and its redline without changing the document."`
	NoTrack      bool   `help:"Edit without tracking changes."`
}

func (c *SuggestCmd) Run(env *Env) error {
	doc, err := c.open(env, !c.NoTrack)
	if err != nil {
		return err
	}
	if err := c.apply(doc); err != nil {
		return err
	}
	req := rewrite.Request{Text: doc.SelectedText(), Instructions: c.Instructions}
	if c.Context != "" {
		if req.Context, err = env.readInput(c.Context); err != nil {
			return err
		}
	}

	r := &rewrite.Rewriter{
		NewConversation:  env.conversations(),
		MaxContextTokens: env.Config.Model.MaxContextTokens,
		Logger:           env.Logger,
	}
	ctx, cancel := context.WithTimeout(env.Ctx, env.Config.Timeout())
	defer cancel()
	sug, err := r.Suggest(ctx, req)
	if err != nil {
		return health.WrapHuman("could not get a suggestion: "+err.Error(), "cli.suggest", err)
	}
	env.Logger.Info("suggest.usage", sug.Usage.LogPairs()...)
	if sug.ContextTruncated {
		fmt.Fprintln(env.Err, "note: reference context was truncated to fit the model's budget")
	}

	if c.DryRun {
		fmt.Fprintln(env.Out, redline.Prepare(sug.Original, sug.Rewritten).RenderInline(env.Color))
		fmt.Fprintf(env.Out, "Justification: %s\n", sug.Justification)
		return nil
	}

	res, _, runErr := redline.RedlineSelection(env.Ctx, doc, sug.Rewritten, env.redlineOptions())
	if runErr != nil && !isStepError(runErr) {
		return runErr
	}
	if runErr == nil {
		redline.Annotate(env.Ctx, doc, sug.Justification, env.redlineOptions())
	}
	if err := c.finish(env, doc); err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Justification: %s\n", sug.Justification)
	for _, sk := range res.Skips {
		fmt.Fprintf(env.Err, "skipped %s\n", sk)
	}
	if runErr != nil {
		return redlineFailed(runErr)
	}
	return nil
}

type ServeCmd struct {
	Addr string `help:"Listen address (default from config)."`
}

func (c *ServeCmd) Run(env *Env) error {
	addr := c.Addr
	if addr == "" {
		addr = env.Config.Server.Addr
	}

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := env.redlineOptions()
	s := server.New(server.Options{
		Addr:        addr,
		AllowOrigin: env.Config.Server.AllowOrigin,
		Rewriter: &rewrite.Rewriter{
			NewConversation:  env.conversations(),
			MaxContextTokens: env.Config.Model.MaxContextTokens,
			Logger:           env.Logger,
		},
		Redline:        opts,
		Registry:       reg,
		Logger:         env.Logger,
		RequestTimeout: env.Config.Timeout(),
	})

	ctx, stop := signal.NotifyContext(env.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(env.Err, "listening on %s\n", addr)
	return s.ListenAndServe(ctx)
}

type ConfigCmd struct{}

func (c *ConfigCmd) Run(env *Env) error {
	b, err := env.Config.YAML()
	if err != nil {
		return err
	}
	_, err = env.Out.Write(b)
	return err
}

func (e *Env) redlineOptions() redline.Options {
	opts := e.Config.RedlineOptions()
	opts.Logger = e.Logger
	return opts
}

func isStepError(err error) bool {
	var se *redline.StepError
	return errors.As(err, &se)
}

func redlineFailed(err error) error {
	return health.WrapHuman("could not complete the redline: "+err.Error(), "cli.redline", err)
}
