package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/calorielens-backend/api/middleware"
	"github.com/angelmondragon/calorielens-backend/api/responses"
	"github.com/angelmondragon/calorielens-backend/api/validators"
	"github.com/angelmondragon/calorielens-backend/internal/identity"
	"github.com/angelmondragon/calorielens-backend/internal/nutritionlogs"
	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
	"github.com/angelmondragon/calorielens-backend/pkg/pagination"
)

type totalsBody struct {
	Calories *float64 `json:"calories" validate:"required,gte=0"`
	ProteinG *float64 `json:"protein_g" validate:"required,gte=0"`
	CarbsG   *float64 `json:"carbs_g" validate:"required,gte=0"`
	FatG     *float64 `json:"fat_g" validate:"required,gte=0"`
}

type saveLogRequest struct {
	Totals *totalsBody `json:"totals" validate:"required"`
}

// SaveNutritionLog appends a log for the signed-in user.
func SaveNutritionLog(svc nutritionlogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "nutrition logs service unavailable"))
			return
		}

		var body saveLogRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saved, err := svc.Save(r.Context(), middleware.UserIDFromContext(r.Context()), nutritionlogs.SaveInput{
			Calories: *body.Totals.Calories,
			ProteinG: *body.Totals.ProteinG,
			CarbsG:   *body.Totals.CarbsG,
			FatG:     *body.Totals.FatG,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, saved)
	}
}

// ListNutritionLogs pages through the user's logs, newest first.
func ListNutritionLogs(svc nutritionlogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "nutrition logs service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), nutritionlogs.ListParams{
			UserID: middleware.UserIDFromContext(r.Context()),
			Limit:  limit,
			Cursor: validators.SanitizeString(r.URL.Query().Get("cursor"), 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DailyTotals sums the user's logs since local midnight. The optional tz
// query parameter names the user's time zone; defaultLoc applies otherwise.
// A request without a session user gets {"data": null}.
func DailyTotals(svc nutritionlogs.Service, defaultLoc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "nutrition logs service unavailable"))
			return
		}

		loc, err := validators.ParseQueryLocation(r, "tz", defaultLoc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := nutritionlogs.WithLocation(r.Context(), loc)
		totals, err := svc.DailyTotals(ctx, identity.UserFromContext(ctx))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if totals == nil {
			responses.WriteSuccess(w, nil)
			return
		}
		responses.WriteSuccess(w, totals)
	}
}
