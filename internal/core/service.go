package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/csvtable/internal/config"
	"github.com/JonMunkholm/csvtable/internal/csvparse"
	"github.com/JonMunkholm/csvtable/internal/logging"
	"github.com/JonMunkholm/csvtable/internal/render"
)

// ConvertRequest describes one conversion.
type ConvertRequest struct {
	Input   string         `json:"input"`
	Format  string         `json:"format"`
	Options render.Options `json:"options"`
	Save    bool           `json:"save"`
}

// ConvertResult is the outcome of a successful conversion.
type ConvertResult struct {
	Format    render.Format  `json:"format"`
	Markup    string         `json:"markup"`
	Table     csvparse.Table `json:"table"`
	Rows      int            `json:"rows"`
	Columns   int            `json:"columns"`
	SnippetID string         `json:"snippet_id,omitempty"`
}

// Service runs conversions for both the HTTP and command-line hosts.
type Service struct {
	cfg     config.ConvertConfig
	store   SnippetStore
	limiter *ConversionLimiter
	metrics *Metrics
}

// NewService creates a Service. A nil store falls back to a MemoryStore sized
// by cfg.HistoryLimit; nil metrics disables instrumentation.
func NewService(cfg config.ConvertConfig, store SnippetStore, metrics *Metrics) *Service {
	if store == nil {
		store = NewMemoryStore(cfg.HistoryLimit)
	}
	return &Service{
		cfg:     cfg,
		store:   store,
		limiter: NewConversionLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		metrics: metrics,
	}
}

// MaxInputSize returns the configured input limit in bytes; zero means none.
func (s *Service) MaxInputSize() int64 {
	return s.cfg.MaxInputSize
}

// Convert parses req.Input and renders it in the requested format. The input
// is cleaned like an uploaded file first. An input without any non-blank row
// fails with render.ErrNoData.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	format, err := render.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(req.Input); err != nil {
		return nil, err
	}
	input := csvparse.Clean(req.Input)

	opts := req.Options
	if format == render.FormatHTML && opts.ClassName == "" {
		opts.ClassName = s.cfg.DefaultClassName
	}
	renderer, err := render.NewRenderer(format, opts)
	if err != nil {
		return nil, err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		s.metrics.RecordConversion(string(format), StatusError, 0, 0)
		return nil, err
	}
	defer s.limiter.Release()
	s.metrics.ConversionStarted()
	defer s.metrics.ConversionFinished()

	var saved *Snippet
	sink := render.FuncSink(func(ctx context.Context, out render.Output) error {
		if !req.Save {
			return nil
		}
		saved = &Snippet{
			Format:    out.Format,
			Options:   opts,
			Input:     input,
			Markup:    out.Markup,
			Rows:      len(out.Table),
			Columns:   out.Table.Width(),
			ClientIP:  ClientIPFromContext(ctx),
			UserAgent: UserAgentFromContext(ctx),
		}
		return s.store.Save(ctx, saved)
	})

	start := time.Now()
	out, err := render.Bind(render.StringSource(input), renderer, sink).Run(ctx)
	elapsed := time.Since(start)

	logger := logging.WithFields(ctx, "format", format, "rows", len(out.Table))
	switch {
	case errors.Is(err, render.ErrNoData):
		s.metrics.RecordConversion(string(format), StatusNoData, 0, elapsed)
		logger.Debug("conversion produced no data")
		return nil, err
	case err != nil:
		s.metrics.RecordConversion(string(format), StatusError, len(out.Table), elapsed)
		logger.Error("conversion failed", "error", err)
		return nil, fmt.Errorf("convert: %w", err)
	}

	s.metrics.RecordConversion(string(format), StatusOK, len(out.Table), elapsed)
	logger.Info("conversion finished", "duration", elapsed, "saved", saved != nil)

	result := &ConvertResult{
		Format:  out.Format,
		Markup:  out.Markup,
		Table:   out.Table,
		Rows:    len(out.Table),
		Columns: out.Table.Width(),
	}
	if saved != nil {
		result.SnippetID = saved.ID
	}
	return result, nil
}

// Parse returns the table for input without rendering it.
func (s *Service) Parse(ctx context.Context, input string) (csvparse.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkSize(input); err != nil {
		return nil, err
	}
	return csvparse.Parse(csvparse.Clean(input)), nil
}

func (s *Service) checkSize(input string) error {
	if s.cfg.MaxInputSize > 0 && int64(len(input)) > s.cfg.MaxInputSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", csvparse.ErrInputTooLarge, len(input), s.cfg.MaxInputSize)
	}
	return nil
}

// GetSnippet returns a saved conversion.
func (s *Service) GetSnippet(ctx context.Context, id string) (*Snippet, error) {
	return s.store.Get(ctx, id)
}

// ListSnippets returns saved conversions, newest first. The limit is clamped
// to the configured history size.
func (s *Service) ListSnippets(ctx context.Context, limit int) ([]Snippet, error) {
	ceiling := s.cfg.HistoryLimit
	if ceiling <= 0 {
		ceiling = DefaultHistoryLimit
	}
	if limit <= 0 || limit > ceiling {
		limit = ceiling
	}
	return s.store.List(ctx, limit)
}

// DeleteSnippet removes a saved conversion.
func (s *Service) DeleteSnippet(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("snippet deleted", "id", id)
	return nil
}

// LimiterStatus reports conversion slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForConversions blocks until in-flight conversions finish or ctx ends.
func (s *Service) WaitForConversions(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
