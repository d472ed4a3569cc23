package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/codalotl/redline/internal/diff"
	"github.com/codalotl/redline/internal/memdoc"
	"github.com/codalotl/redline/internal/redline"
	"github.com/codalotl/redline/internal/rewrite"
)

type errorResponse struct {
	Error string `json:"error"`
}

type diffRequest struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

type diffResponse struct {
	diff.Script
	Inline string `json:"inline"`
}

type rewriteResponse struct {
	rewrite.Suggestion
	Script diff.Script `json:"script"`
}

type redlineRequest struct {
	Text        string `json:"text"`
	Select      string `json:"select,omitempty"` // exact text to redline; empty means all of Text
	Replacement string `json:"replacement"`
	Author      string `json:"author,omitempty"`
	Track       *bool  `json:"track,omitempty"` // default true
	Comment     string `json:"comment,omitempty"` // attached to the selection after a successful redline
}

type redlineResponse struct {
	Markup    string        `json:"markup"`
	Accepted  string        `json:"accepted"`
	Original  string        `json:"original"`
	Revisions int           `json:"revisions"`
	Result    resultSummary `json:"result"`
	Script    diff.Script   `json:"script"`
	Comments  []commentView `json:"comments,omitempty"`
}

type commentView struct {
	Author string `json:"author"`
	Quote  string `json:"quote"`
	Text   string `json:"text"`
}

type resultSummary struct {
	Equal    int      `json:"equal"`
	Deleted  int      `json:"deleted"`
	Inserted int      `json:"inserted"`
	Complete bool     `json:"complete"`
	Skips    []string `json:"skips,omitempty"`
}

func summarize(res redline.Result) resultSummary {
	out := resultSummary{Equal: res.Equal, Deleted: res.Deleted, Inserted: res.Inserted, Complete: res.Complete()}
	for _, sk := range res.Skips {
		out.Skips = append(out.Skips, sk.String())
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if !s.decode(w, r, &req) {
		return
	}
	script := redline.Prepare(req.Original, req.Replacement)
	writeJSON(w, http.StatusOK, diffResponse{Script: script, Inline: script.RenderInline(false)})
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var req rewrite.Request
	if !s.decode(w, r, &req) {
		return
	}
	if s.opts.Rewriter == nil {
		s.writeError(w, http.StatusInternalServerError, errors.New("rewrite is not configured"))
		return
	}

	sug, err := s.opts.Rewriter.Suggest(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rewrite.ErrEmptyText) || errors.Is(err, rewrite.ErrEmptyInstructions) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, rewriteResponse{Suggestion: sug, Script: redline.Prepare(sug.Original, sug.Rewritten)})
}

// handleRedline applies a replacement to a throwaway in-memory document and returns the tracked result.
func (s *Server) handleRedline(w http.ResponseWriter, r *http.Request) {
	var req redlineRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("text is empty"))
		return
	}

	track := req.Track == nil || *req.Track
	opts := []memdoc.Option{memdoc.WithTracking(track)}
	if req.Author != "" {
		opts = append(opts, memdoc.WithAuthor(req.Author))
	}
	doc := memdoc.New(req.Text, opts...)
	if req.Select != "" {
		if err := doc.SelectText(req.Select); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	res, script, err := redline.RedlineSelection(r.Context(), doc, req.Replacement, s.opts.Redline)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, redline.ErrNothingSelected) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	redline.Annotate(r.Context(), doc, req.Comment, s.opts.Redline)

	resp := redlineResponse{
		Markup:    doc.Render(false),
		Accepted:  doc.Accepted(),
		Original:  doc.Original(),
		Revisions: len(doc.Revisions()),
		Result:    summarize(res),
		Script:    script,
	}
	for _, c := range doc.Comments() {
		resp.Comments = append(resp.Comments, commentView{Author: c.Author, Quote: c.Quote, Text: c.Text})
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body into v. On failure it writes a 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
