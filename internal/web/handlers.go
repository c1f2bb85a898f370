package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/csvtable/internal/core"
	"github.com/JonMunkholm/csvtable/internal/csvparse"
	"github.com/JonMunkholm/csvtable/internal/render"
	"github.com/JonMunkholm/csvtable/internal/web/templates"
)

// formOverhead is allowed on top of MaxInputSize for multipart framing and
// the other form fields.
const formOverhead = 64 << 10

// ParseResponse is returned by POST /api/parse.
type ParseResponse struct {
	Rows    int            `json:"rows"`
	Columns int            `json:"columns"`
	Table   csvparse.Table `json:"table"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, templates.PageData{Format: render.FormatHTML})
}

// handleConvertForm accepts the page form, either urlencoded with an "input"
// field or multipart with a "file" upload. HTMX requests get the result
// fragment; plain posts get the whole page back.
func (s *Server) handleConvertForm(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)

	req, err := s.readConvertForm(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	res, err := s.service.Convert(withRequestMetadata(r.Context(), r), req)

	if isHTMX(r) {
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.ResultPanel(res, req.Options.HasHeader).Render(r.Context(), w)
		return
	}

	format, _ := render.ParseFormat(req.Format)
	data := templates.PageData{Input: req.Input, Format: format, Options: req.Options, Result: res}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		msg := core.MapError(err)
		data.Error = &msg
		data.Result = nil
	}
	s.renderPage(w, r, status, data)
}

func (s *Server) readConvertForm(r *http.Request) (core.ConvertRequest, error) {
	var req core.ConvertRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(s.service.MaxInputSize() + formOverhead); err != nil {
			return req, bodyError(err)
		}
	} else if err := r.ParseForm(); err != nil {
		return req, bodyError(err)
	}

	input, err := s.formInput(r)
	if err != nil {
		return req, err
	}

	req.Input = input
	req.Format = r.FormValue("format")
	req.Save = formBool(r, "save")
	req.Options = render.Options{
		HasHeader:      formBool(r, "header"),
		ClassName:      strings.TrimSpace(r.FormValue("class")),
		HasFixedLayout: formBool(r, "fixed_layout"),
		HasStripes:     formBool(r, "stripes"),
	}
	return req, nil
}

// formInput prefers an uploaded file over the text area.
func (s *Server) formInput(r *http.Request) (string, error) {
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["file"]; len(files) > 0 && files[0].Size > 0 {
			f, err := files[0].Open()
			if err != nil {
				return "", fmt.Errorf("open upload: %w", err)
			}
			defer f.Close()
			return csvparse.ReadLimited(f, s.service.MaxInputSize())
		}
	}
	if _, ok := r.Form["input"]; !ok {
		return "", core.ErrNoInput
	}
	return r.FormValue("input"), nil
}

func formBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.FormValue(name)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

func (s *Server) handleAPIParse(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)

	var body struct {
		Input *string `json:"input"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if body.Input == nil {
		s.respondError(w, r, core.ErrNoInput, 0)
		return
	}

	table, err := s.service.Parse(r.Context(), *body.Input)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, ParseResponse{Rows: len(table), Columns: table.Width(), Table: table})
}

func (s *Server) handleAPIConvert(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)

	var body struct {
		core.ConvertRequest
		Input *string `json:"input"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if body.Input == nil {
		s.respondError(w, r, core.ErrNoInput, 0)
		return
	}
	req := body.ConvertRequest
	req.Input = *body.Input

	res, err := s.service.Convert(withRequestMetadata(r.Context(), r), req)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleListSnippets(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, r, fmt.Errorf("%w: limit %q", core.ErrInvalidRequest, v), 0)
			return
		}
		limit = n
	}

	snippets, err := s.service.ListSnippets(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if snippets == nil {
		snippets = []core.Snippet{}
	}
	writeJSON(w, map[string]any{"snippets": snippets, "count": len(snippets)})
}

func (s *Server) handleGetSnippet(w http.ResponseWriter, r *http.Request) {
	snippet, err := s.service.GetSnippet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, snippet)
}

func (s *Server) handleDeleteSnippet(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSnippet(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLimiterStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.service.LimiterStatus())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, HealthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, HealthResponse{Status: "ok", Database: "ok"})
}

// limitBody caps the request body at the input limit plus form overhead.
func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) {
	if limit := s.service.MaxInputSize(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return bodyError(err)
	}
	return nil
}

// bodyError classifies a failure to read the request body.
func bodyError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return fmt.Errorf("%w: %w", csvparse.ErrInputTooLarge, err)
	}
	return fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
}
