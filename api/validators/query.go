package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryLocation reads an IANA zone name such as "Europe/Berlin". A
// missing parameter yields fallback.
func ParseQueryLocation(r *http.Request, key string, fallback *time.Location) (*time.Location, error) {
	raw := SanitizeString(r.URL.Query().Get(key), 64)
	if raw == "" {
		return fallback, nil
	}
	loc, err := time.LoadLocation(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown time zone").WithDetails(map[string]any{"field": key})
	}
	return loc, nil
}
