package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codalotl/redline/internal/document"
	"github.com/codalotl/redline/internal/memdoc"
)

// DocFlags are shared by commands that edit a document file.
type DocFlags struct {
	Doc    string `required:"" help:"Document to edit: plain text, or a .json file saved with --out."`
	Out    string `help:"Save the resulting document (with its tracked changes) as JSON to this file."`
	Author string `help:"Author recorded on tracked changes (default from config)."`
}

// SelectFlags choose the part of the document to work on.
type SelectFlags struct {
	Select string `help:"Work on the first exact occurrence of this text."`
	Start  int    `default:"-1" help:"Byte offset where the selection starts (with --end)."`
	End    int    `default:"-1" help:"Byte offset where the selection ends (with --start)."`
}

func (s SelectFlags) isSet() bool {
	return s.Select != "" || s.Start >= 0 || s.End >= 0
}

// apply selects per the flags. With no flags, a plain-text document keeps its whole-text selection and a loaded document keeps its saved selection (or gets
// everything selected if it had none).
func (s SelectFlags) apply(doc *memdoc.Document) error {
	switch {
	case s.Select != "" && (s.Start >= 0 || s.End >= 0):
		return errors.New("use either --select or --start/--end, not both")
	case s.Select != "":
		return doc.SelectText(s.Select)
	case s.Start >= 0 || s.End >= 0:
		if s.Start < 0 || s.End < 0 {
			return errors.New("--start and --end must be given together")
		}
		return doc.Select(s.Start, s.End)
	}
	if _, err := doc.Selection(context.Background()); errors.Is(err, document.ErrNoSelection) {
		doc.SelectAll()
	}
	return nil
}

// open reads the document. Files ending in .json are memdoc snapshots; anything else is plain text.
func (f DocFlags) open(env *Env, track bool) (*memdoc.Document, error) {
	author := f.Author
	if author == "" {
		author = env.Config.Redline.Author
	}
	opts := []memdoc.Option{memdoc.WithAuthor(author), memdoc.WithTracking(track)}

	b, err := os.ReadFile(f.Doc)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(f.Doc), ".json") {
		doc, err := memdoc.Load(bytes.NewReader(b), opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Doc, err)
		}
		return doc, nil
	}
	return memdoc.New(string(b), opts...), nil
}

// finish prints the rendered document and saves it if --out was given.
func (f DocFlags) finish(env *Env, doc *memdoc.Document) error {
	if f.Out != "" {
		var buf bytes.Buffer
		if err := doc.Save(&buf); err != nil {
			return err
		}
		if err := os.WriteFile(f.Out, buf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(env.Out, doc.Render(env.Color))
	return err
}
