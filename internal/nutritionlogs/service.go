package nutritionlogs

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/calorielens-backend/internal/identity"
	"github.com/angelmondragon/calorielens-backend/pkg/db"
	"github.com/angelmondragon/calorielens-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
	"github.com/angelmondragon/calorielens-backend/pkg/metrics"
	"github.com/angelmondragon/calorielens-backend/pkg/pagination"
	"github.com/angelmondragon/calorielens-backend/pkg/types"
)

// Service saves, lists and aggregates nutrition logs.
type Service interface {
	Save(ctx context.Context, userID string, input SaveInput) (*models.NutritionLog, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	// DailyTotals sums the user's logs since midnight in the location carried
	// by ctx. A nil user yields (nil, nil).
	DailyTotals(ctx context.Context, user *identity.User) (*DailyTotals, error)
}

// SaveInput is the totals document of a new log.
type SaveInput struct {
	Calories float64
	ProteinG float64
	CarbsG   float64
	FatG     float64
}

// ListParams configures pagination for the log listing.
type ListParams struct {
	UserID string
	Limit  int
	Cursor string
}

// ListResult wraps returned logs and the cursor for the next page.
type ListResult struct {
	Items  []models.NutritionLog `json:"items"`
	Cursor string                `json:"cursor"`
}

// StoreQueryError marks a failed read from the log store, so callers can tell
// it apart from a user with no session.
type StoreQueryError struct {
	Op  string
	Err error
}

func (e *StoreQueryError) Error() string {
	return "nutrition log store: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreQueryError) Unwrap() error {
	return e.Err
}

type service struct {
	repo       Repository
	logg       *logger.Logger
	metrics    *metrics.AnalysisMetrics
	defaultLoc *time.Location
	now        func() time.Time
}

// NewService wires nutrition log dependencies. defaultLoc is used when the
// request carries no location; nil means UTC.
func NewService(repo Repository, logg *logger.Logger, m *metrics.AnalysisMetrics, defaultLoc *time.Location) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nutrition logs repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &service{
		repo:       repo,
		logg:       logg,
		metrics:    m,
		defaultLoc: defaultLoc,
		now:        time.Now,
	}, nil
}

type locationKey struct{}

// WithLocation sets the time zone that defines "today" for DailyTotals.
func WithLocation(ctx context.Context, loc *time.Location) context.Context {
	if loc == nil {
		return ctx
	}
	return context.WithValue(ctx, locationKey{}, loc)
}

func (s *service) location(ctx context.Context) *time.Location {
	if loc, ok := ctx.Value(locationKey{}).(*time.Location); ok && loc != nil {
		return loc
	}
	return s.defaultLoc
}

// StartOfDay returns midnight of now's calendar day in loc.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func (s *service) DailyTotals(ctx context.Context, user *identity.User) (*DailyTotals, error) {
	if user == nil {
		return nil, nil
	}

	since := StartOfDay(s.now(), s.location(ctx))
	logs, err := s.repo.ListSince(ctx, user.ID, since)
	if err != nil {
		s.metrics.IncStoreFailure("daily_totals")
		qerr := &StoreQueryError{Op: "list since midnight", Err: err}
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"user_id":           user.ID,
			"since":             since.Format(time.RFC3339),
			"store_unavailable": db.IsUnavailable(err),
		}), "daily_totals.query_failed", qerr)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, qerr, "daily totals unavailable")
	}

	for _, l := range logs {
		if l.Totals.Malformed() {
			s.metrics.IncStoreFailure("malformed_record")
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"user_id": user.ID,
				"log_id":  l.ID.String(),
			}), "daily_totals.malformed_record_skipped")
		}
	}

	totals := sumTotals(logs)
	return &totals, nil
}

func (s *service) Save(ctx context.Context, userID string, input SaveInput) (*models.NutritionLog, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	for _, v := range []float64{input.Calories, input.ProteinG, input.CarbsG, input.FatG} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "totals must be finite and non-negative")
		}
	}

	log := &models.NutritionLog{
		UserID:    userID,
		Totals:    types.NewMacroTotals(input.Calories, input.ProteinG, input.CarbsG, input.FatG),
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, log); err != nil {
		s.metrics.IncStoreFailure("save")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save nutrition log")
	}
	return log, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if strings.TrimSpace(params.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}

	query := listLogsParams{
		UserID: params.UserID,
		Limit:  params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		s.metrics.IncStoreFailure("list")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list nutrition logs")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}
