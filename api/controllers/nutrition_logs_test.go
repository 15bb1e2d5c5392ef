package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/calorielens-backend/api/middleware"
	"github.com/angelmondragon/calorielens-backend/internal/identity"
	"github.com/angelmondragon/calorielens-backend/internal/nutritionlogs"
	"github.com/angelmondragon/calorielens-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
	"github.com/angelmondragon/calorielens-backend/pkg/types"
)

type testLogsService struct {
	saveFn  func(ctx context.Context, userID string, input nutritionlogs.SaveInput) (*models.NutritionLog, error)
	listFn  func(ctx context.Context, params nutritionlogs.ListParams) (*nutritionlogs.ListResult, error)
	dailyFn func(ctx context.Context, user *identity.User) (*nutritionlogs.DailyTotals, error)
}

func (s *testLogsService) Save(ctx context.Context, userID string, input nutritionlogs.SaveInput) (*models.NutritionLog, error) {
	if s.saveFn != nil {
		return s.saveFn(ctx, userID, input)
	}
	return nil, nil
}

func (s *testLogsService) List(ctx context.Context, params nutritionlogs.ListParams) (*nutritionlogs.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &nutritionlogs.ListResult{}, nil
}

func (s *testLogsService) DailyTotals(ctx context.Context, user *identity.User) (*nutritionlogs.DailyTotals, error) {
	if s.dailyFn != nil {
		return s.dailyFn(ctx, user)
	}
	return nil, nil
}

func withUser(req *http.Request, user *identity.User) *http.Request {
	ctx := identity.WithSession(req.Context(), identity.NewSession(user))
	if user != nil {
		ctx = middleware.WithUserID(ctx, user.ID)
	}
	return req.WithContext(ctx)
}

func TestSaveNutritionLog(t *testing.T) {
	var got nutritionlogs.SaveInput
	svc := &testLogsService{saveFn: func(_ context.Context, userID string, input nutritionlogs.SaveInput) (*models.NutritionLog, error) {
		if userID != "user-1" {
			t.Fatalf("unexpected user %q", userID)
		}
		got = input
		return &models.NutritionLog{UserID: userID, Totals: types.NewMacroTotals(input.Calories, input.ProteinG, input.CarbsG, input.FatG)}, nil
	}}

	body := `{"totals":{"calories":520,"protein_g":31.5,"carbs_g":0,"fat_g":12}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/nutrition/logs", strings.NewReader(body))
	req = withUser(req, &identity.User{ID: "user-1"})
	resp := httptest.NewRecorder()
	SaveNutritionLog(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got != (nutritionlogs.SaveInput{Calories: 520, ProteinG: 31.5, CarbsG: 0, FatG: 12}) {
		t.Fatalf("unexpected input %+v", got)
	}
	if !strings.Contains(resp.Body.String(), `"protein_g":31.5`) {
		t.Fatalf("expected totals in body, got %s", resp.Body.String())
	}
}

func TestSaveNutritionLogValidates(t *testing.T) {
	svc := &testLogsService{saveFn: func(context.Context, string, nutritionlogs.SaveInput) (*models.NutritionLog, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	for _, body := range []string{
		`{"totals":{"calories":-5,"protein_g":1,"carbs_g":1,"fat_g":1}}`,
		`{"totals":{"calories":5,"protein_g":1,"carbs_g":1}}`,
		`{}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/nutrition/logs", strings.NewReader(body))
		req = withUser(req, &identity.User{ID: "user-1"})
		resp := httptest.NewRecorder()
		SaveNutritionLog(svc, testLogger())(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", body, resp.Code)
		}
	}
}

func TestListNutritionLogs(t *testing.T) {
	svc := &testLogsService{listFn: func(_ context.Context, params nutritionlogs.ListParams) (*nutritionlogs.ListResult, error) {
		if params.UserID != "user-1" || params.Limit != 10 || params.Cursor != "abc" {
			t.Fatalf("unexpected params %+v", params)
		}
		return &nutritionlogs.ListResult{Items: []models.NutritionLog{}, Cursor: "next"}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/logs?limit=10&cursor=abc", nil)
	req = withUser(req, &identity.User{ID: "user-1"})
	resp := httptest.NewRecorder()
	ListNutritionLogs(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"cursor":"next"`) {
		t.Fatalf("expected cursor, got %s", resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/logs?limit=0", nil)
	resp = httptest.NewRecorder()
	ListNutritionLogs(svc, testLogger())(resp, withUser(req, &identity.User{ID: "user-1"}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDailyTotalsHandler(t *testing.T) {
	var gotUser *identity.User
	svc := &testLogsService{dailyFn: func(_ context.Context, user *identity.User) (*nutritionlogs.DailyTotals, error) {
		gotUser = user
		return &nutritionlogs.DailyTotals{Calories: 1000, Protein: 50, Carbs: 90, Fat: 30}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/daily?tz=UTC", nil)
	req = withUser(req, &identity.User{ID: "user-1"})
	resp := httptest.NewRecorder()
	DailyTotals(svc, time.UTC, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if gotUser == nil || gotUser.ID != "user-1" {
		t.Fatalf("expected session user, got %+v", gotUser)
	}
	var envelope struct {
		Data nutritionlogs.DailyTotals `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data != (nutritionlogs.DailyTotals{Calories: 1000, Protein: 50, Carbs: 90, Fat: 30}) {
		t.Fatalf("unexpected totals %+v", envelope.Data)
	}
}

func TestDailyTotalsHandlerWithoutUserIsNull(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/daily", nil)
	resp := httptest.NewRecorder()
	DailyTotals(&testLogsService{}, time.UTC, testLogger())(resp, withUser(req, nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if strings.TrimSpace(resp.Body.String()) != `{"data":null}` {
		t.Fatalf("expected null data, got %s", resp.Body.String())
	}
}

func TestDailyTotalsHandlerStoreFailure(t *testing.T) {
	svc := &testLogsService{dailyFn: func(context.Context, *identity.User) (*nutritionlogs.DailyTotals, error) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, &nutritionlogs.StoreQueryError{Op: "list", Err: context.DeadlineExceeded}, "daily totals unavailable")
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/daily", nil)
	resp := httptest.NewRecorder()
	DailyTotals(svc, time.UTC, testLogger())(resp, withUser(req, &identity.User{ID: "user-1"}))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestDailyTotalsHandlerRejectsUnknownZone(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/daily?tz=Nowhere/Special", nil)
	resp := httptest.NewRecorder()
	DailyTotals(&testLogsService{}, time.UTC, testLogger())(resp, withUser(req, &identity.User{ID: "user-1"}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
