package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
	"github.com/angelmondragon/calorielens-backend/pkg/gemini"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
	"github.com/angelmondragon/calorielens-backend/pkg/metrics"
)

// Service runs the photo analysis workflow.
type Service interface {
	// Analyze turns one food photo into a NutritionResult.
	Analyze(ctx context.Context, image []byte, mimeType string) (*NutritionResult, error)
	// AnalyzeForUser runs Analyze and records the result as the user's latest.
	AnalyzeForUser(ctx context.Context, userID string, image []byte, mimeType string) (*Analysis, error)
	// Latest returns the user's last recorded analysis.
	Latest(ctx context.Context, userID string) (*Analysis, error)
}

// Analysis is a recorded result.
type Analysis struct {
	ID          string           `json:"analysis_id"`
	Result      *NutritionResult `json:"result"`
	CompletedAt time.Time        `json:"completed_at"`
}

type generator interface {
	GenerateContent(ctx context.Context, req gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error)
}

// Options tunes the provider call.
type Options struct {
	// Temperature is sent as is, zero included; nil means DefaultTemperature.
	Temperature     *float64
	MaxOutputTokens int
	// Timeout bounds the detached provider call; zero means no bound.
	Timeout time.Duration
}

type service struct {
	gen         generator
	slot        *ResultSlot
	opts        Options
	temperature float64
	logg        *logger.Logger
	metrics     *metrics.AnalysisMetrics
	now         func() time.Time
}

// NewService wires the analysis workflow. slot may be nil, in which case
// results are not recorded.
func NewService(gen generator, slot *ResultSlot, opts Options, logg *logger.Logger, m *metrics.AnalysisMetrics) (Service, error) {
	if gen == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inference provider required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	temperature := DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return &service{
		gen:         gen,
		slot:        slot,
		opts:        opts,
		temperature: temperature,
		logg:        logg,
		metrics:     m,
		now:         time.Now,
	}, nil
}

type callResult struct {
	resp *gemini.GenerateContentResponse
	err  error
}

func (s *service) Analyze(ctx context.Context, image []byte, mimeType string) (*NutritionResult, error) {
	if len(image) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = mimetype.Detect(image).String()
	}
	s.metrics.ObserveImageSize(len(image))

	req := buildRequest(image, mimeType, s.temperature, s.opts.MaxOutputTokens)

	// The remote call is never aborted once issued; a caller that goes away
	// only stops waiting for it.
	detached := context.WithoutCancel(ctx)
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if s.opts.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(detached, s.opts.Timeout)
	} else {
		callCtx, cancel = context.WithCancel(detached)
	}
	done := make(chan callResult, 1)
	started := s.now()
	go func() {
		defer cancel()
		resp, err := s.gen.GenerateContent(callCtx, req)
		done <- callResult{resp: resp, err: err}
	}()

	var res callResult
	select {
	case <-ctx.Done():
		s.metrics.IncOutcome(metrics.OutcomeDiscarded)
		s.logg.Info(s.logg.WithField(ctx, "reason", ctx.Err().Error()), "analysis.discarded")
		return nil, ctx.Err()
	case res = <-done:
	}

	result, aerr := interpret(res)
	took := s.now().Sub(started)
	if aerr != nil {
		s.metrics.ObserveProviderCall(string(aerr.Kind), took)
		s.metrics.IncOutcome(string(aerr.Kind))
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"analysis_kind": string(aerr.Kind),
			"duration_ms":   took.Milliseconds(),
		})
		s.logg.Error(logCtx, "analysis.failed", aerr)
		return nil, pkgerrors.Wrap(pkgerrors.CodeAnalysisFailed, aerr, aerr.Message).
			WithDetails(map[string]any{"analysis_kind": string(aerr.Kind)})
	}

	s.metrics.ObserveProviderCall(metrics.OutcomeSuccess, took)
	s.metrics.IncOutcome(metrics.OutcomeSuccess)
	return result, nil
}

func interpret(res callResult) (*NutritionResult, *Error) {
	if res.err != nil {
		var apiErr *gemini.APIError
		if errors.As(res.err, &apiErr) {
			return nil, newProviderError(apiErr.Message, res.err)
		}
		return nil, newProviderError("", res.err)
	}

	text, _ := res.resp.FirstText()
	span, ok := extractJSONSpan(text)
	if !ok {
		return nil, newUnparseableResponse()
	}
	result, err := parseResult(span)
	if err != nil {
		return nil, newMalformedResult(err)
	}
	return result, nil
}

func (s *service) AnalyzeForUser(ctx context.Context, userID string, image []byte, mimeType string) (*Analysis, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}

	var (
		ticket    Ticket
		hasTicket bool
	)
	if s.slot != nil {
		t, err := s.slot.Begin(ctx, userID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analysis.slot.begin_failed")
		} else {
			ticket, hasTicket = t, true
		}
	}

	result, err := s.Analyze(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}

	out := &Analysis{
		ID:          uuid.NewString(),
		Result:      result,
		CompletedAt: s.now().UTC(),
	}

	if hasTicket {
		kept, err := s.slot.Commit(ctx, ticket, StoredResult{
			AnalysisID:  out.ID,
			Result:      result,
			CompletedAt: out.CompletedAt,
		})
		switch {
		case err != nil:
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analysis.slot.commit_failed")
		case !kept:
			s.logg.Info(s.logg.WithField(ctx, "analysis_id", out.ID), "analysis.superseded")
		}
	}
	return out, nil
}

func (s *service) Latest(ctx context.Context, userID string) (*Analysis, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if s.slot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no analysis recorded")
	}
	stored, err := s.slot.Latest(ctx, userID)
	if errors.Is(err, ErrNoResult) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no analysis recorded")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest analysis")
	}
	return &Analysis{ID: stored.AnalysisID, Result: stored.Result, CompletedAt: stored.CompletedAt}, nil
}

type unconfigured struct{}

// Unconfigured is used when no inference API key is set: every call fails
// with a configuration error while the rest of the service keeps working.
func Unconfigured() Service {
	return unconfigured{}
}

func (unconfigured) Analyze(context.Context, []byte, string) (*NutritionResult, error) {
	return nil, errNotConfigured()
}

func (unconfigured) AnalyzeForUser(context.Context, string, []byte, string) (*Analysis, error) {
	return nil, errNotConfigured()
}

func (unconfigured) Latest(context.Context, string) (*Analysis, error) {
	return nil, errNotConfigured()
}

func errNotConfigured() error {
	return pkgerrors.New(pkgerrors.CodeConfiguration, "inference api key is not configured")
}
