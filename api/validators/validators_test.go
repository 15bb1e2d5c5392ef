package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
)

type saveBody struct {
	Calories *float64 `json:"calories" validate:"required,gte=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"calories":12.5}`))
	var body saveBody
	require.NoError(t, DecodeJSONBody(req, &body))
	require.Equal(t, 12.5, *body.Calories)
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"calories":-1}`))
	var body saveBody
	err := DecodeJSONBody(req, &body)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	require.Equal(t, map[string]string{"calories": "must be greater than or equal to 0"}, pkgerrors.As(err).Details())
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"calories":1,"extra":true}`))
	var body saveBody
	err := DecodeJSONBody(req, &body)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10", nil)
	v, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 10, v)

	req = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err = ParseQueryInt(req, "limit", 25, 1, 100)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestParseQueryLocation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	loc, err := ParseQueryLocation(req, "tz", time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)

	req = httptest.NewRequest(http.MethodGet, "/?tz=UTC", nil)
	loc, err = ParseQueryLocation(req, "tz", time.Local)
	require.NoError(t, err)
	require.Equal(t, "UTC", loc.String())

	req = httptest.NewRequest(http.MethodGet, "/?tz=Mars/Olympus", nil)
	_, err = ParseQueryLocation(req, "tz", time.UTC)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	require.Equal(t, "abcdef", SanitizeString("abcdef", 0))
}
