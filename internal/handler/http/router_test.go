package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/attendance-engine/internal/service/attendance"
	automationService "github.com/cmlabs-hris/attendance-engine/internal/service/automation"
	bufferService "github.com/cmlabs-hris/attendance-engine/internal/service/buffer"
	holidayService "github.com/cmlabs-hris/attendance-engine/internal/service/holiday"
	"github.com/cmlabs-hris/attendance-engine/internal/service/reconcile"
	settingsService "github.com/cmlabs-hris/attendance-engine/internal/service/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type stubSource struct {
	punches []punch.Punch
}

func (s stubSource) Fetch(ctx context.Context, start, end time.Time) ([]punch.Punch, error) {
	return s.punches, nil
}

type handlerTestEnv struct {
	router     http.Handler
	adminToken string
	userToken  string
	user       user.User
}

func newHandlerTestEnv(t *testing.T, source punch.Source) handlerTestEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	tx := memory.NewTransactor(store)
	attendanceRepo := memory.NewAttendanceRepository(store)
	userRepo := memory.NewUserRepository(store)
	settingsRepo := memory.NewSettingsRepository(store)

	settingsSvc := settingsService.NewSettingsService(settingsRepo)
	_, err := settingsSvc.EnsureDefaults(ctx)
	require.NoError(t, err)
	bufferSvc := bufferService.NewBufferService(memory.NewCounterRepository(store), userRepo, settingsSvc)
	attendanceSvc := attendanceService.NewAttendanceService(
		attendanceRepo,
		userRepo,
		memory.NewTeamRepository(store),
		settingsSvc,
		bufferSvc,
		reconcile.NewReconciler(attendanceRepo),
		tx,
	)
	automationSvc := automationService.NewAutomationService(source, userRepo, attendanceSvc, settingsSvc, 1, time.UTC)

	team := store.AddTeam(user.Team{Name: "Engineering"})
	usr := store.AddUser(user.User{Name: "Budi", BiometricID: "101", TeamID: team.ID, IsActive: true})

	jwtService := jwt.NewJWTService(handlerTestSecret, "1h")
	adminToken, _, err := jwtService.GenerateAccessToken("admin-1", true)
	require.NoError(t, err)
	userToken, _, err := jwtService.GenerateAccessToken(usr.ID, false)
	require.NoError(t, err)

	router := NewRouter(config.AppConfig{Env: "test"}, jwtService, Handlers{
		Attendance: NewAttendanceHandler(attendanceSvc),
		Settings:   NewSettingsHandler(settingsSvc, holidayService.NewHolidayService(settingsRepo, attendanceRepo, tx)),
		Buffer:     NewBufferHandler(bufferSvc),
		Automation: NewAutomationHandler(automationSvc),
	})

	return handlerTestEnv{
		router:     router,
		adminToken: adminToken,
		userToken:  userToken,
		user:       usr,
	}
}

func (e handlerTestEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var reader bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reader).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp response.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func manualEntry(userID, date string) map[string]interface{} {
	return map[string]interface{}{
		"user_id":   userID,
		"date":      date,
		"check_in":  "10:20",
		"check_out": "19:30",
	}
}

// ===== AUTH TESTS =====

func TestRouter_RequiresToken(t *testing.T) {
	env := newHandlerTestEnv(t, stubSource{})

	rec, resp := env.do(t, http.MethodGet, "/api/v1/attendances", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/attendances", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdminOnly(t *testing.T) {
	env := newHandlerTestEnv(t, stubSource{})

	rec, resp := env.do(t, http.MethodPost, "/api/v1/attendances", env.userToken, manualEntry(env.user.ID, "2024-03-11"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/attendances", env.userToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ===== ATTENDANCE TESTS =====

func TestAttendanceHandler_Create(t *testing.T) {
	env := newHandlerTestEnv(t, stubSource{})

	rec, resp := env.do(t, http.MethodPost, "/api/v1/attendances", env.adminToken, manualEntry(env.user.ID, "2024-03-11"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)

	rec, resp = env.do(t, http.MethodPost, "/api/v1/attendances", env.adminToken, manualEntry(env.user.ID, "2024-03-11"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)

	rec, resp = env.do(t, http.MethodGet, "/api/v1/attendances?user_id="+env.user.ID, env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.TotalItems)
}

func TestAttendanceHandler_Create_ValidationError(t *testing.T) {
	env := newHandlerTestEnv(t, stubSource{})

	body := map[string]interface{}{"user_id": env.user.ID, "date": "11-03-2024", "check_in": "25:00", "check_out": "19:00"}
	rec, resp := env.do(t, http.MethodPost, "/api/v1/attendances", env.adminToken, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Details, "date")
	assert.Contains(t, resp.Error.Details, "check_in")
}

func TestAttendanceHandler_Get_NotFound(t *testing.T) {
	env := newHandlerTestEnv(t, stubSource{})

	rec, _ := env.do(t, http.MethodGet, "/api/v1/attendances/missing", env.userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceHandler_BulkStatus_SpansMonths(t *testing.T) {
	env := newHandlerTestEnv(t, stubSource{})

	var ids []string
	for _, date := range []string{"2024-03-29", "2024-04-01"} {
		rec, resp := env.do(t, http.MethodPost, "/api/v1/attendances", env.adminToken, manualEntry(env.user.ID, date))
		require.Equal(t, http.StatusCreated, rec.Code)
		created := resp.Data.([]interface{})[0].(map[string]interface{})
		ids = append(ids, created["id"].(string))
	}

	rec, _ := env.do(t, http.MethodPost, "/api/v1/attendances/bulk-status", env.adminToken, map[string]interface{}{
		"ids":    ids,
		"status": "Approved",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ===== AUTOMATION TESTS =====

func TestAutomationHandler_Run(t *testing.T) {
	source := stubSource{punches: []punch.Punch{
		{EmployeeID: "101", Timestamp: time.Date(2024, 3, 11, 10, 20, 0, 0, time.UTC)},
		{EmployeeID: "101", Timestamp: time.Date(2024, 3, 11, 19, 30, 0, 0, time.UTC)},
	}}
	env := newHandlerTestEnv(t, source)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/automation/run", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), result["saved"])

	rec, resp = env.do(t, http.MethodGet, "/api/v1/automation/state", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := resp.Data.(map[string]interface{})
	assert.Equal(t, false, state["is_running"])
	assert.Equal(t, float64(1), state["total_saved"])
}

// ===== SETTINGS TESTS =====

func TestSettingsHandler_Holidays(t *testing.T) {
	env := newHandlerTestEnv(t, stubSource{})

	holiday := map[string]interface{}{"date": "2024-03-11", "name": "Nyepi"}
	rec, _ := env.do(t, http.MethodPost, "/api/v1/settings/holidays", env.adminToken, holiday)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/v1/settings/holidays", env.adminToken, holiday)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/settings/holidays", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data, 1)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/settings/holidays/2024-03-12", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
