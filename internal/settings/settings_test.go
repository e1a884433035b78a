package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism-backend/internal/analyses"
	"prism-backend/internal/prism"
	"prism-backend/internal/prompts"
)

var _ analyses.PromptSource = (*Service)(nil)

func TestServiceSaveGetReset(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, svc.Save(ctx, prism.CustomPrompts{Phase3Template: "設問: {{socialLanguages}}"}))
	got, err = svc.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "設問: {{socialLanguages}}", got.Phase3Template)

	got.Phase3Template = "mutated"
	again, _ := svc.Get(ctx)
	assert.Equal(t, "設問: {{socialLanguages}}", again.Phase3Template)

	require.NoError(t, svc.Reset(ctx))
	got, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestServiceBlankSaveResets(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())
	require.NoError(t, svc.Save(ctx, prism.CustomPrompts{SystemPrompt: "x"}))
	require.NoError(t, svc.Save(ctx, prism.CustomPrompts{SystemPrompt: "  "}))

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestServiceSaveRejectsUnknownPlaceholder(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())
	require.NoError(t, svc.Save(ctx, prism.CustomPrompts{Phase2Template: "{{phase1Summary}}"}))

	err := svc.Save(ctx, prism.CustomPrompts{Phase2Template: "要約: {{phase1Sumary}}"})
	var pe *PlaceholderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, map[string][]string{"phase2Template": {"phase1Sumary"}}, pe.Unknown)
	assert.Contains(t, err.Error(), "{{phase1Sumary}}")

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "{{phase1Summary}}", got.Phase2Template)
}

func TestPGRepo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}
	ctx := context.Background()

	mock.ExpectQuery("SELECT prompts FROM prism_custom_prompts").WillReturnError(sql.ErrNoRows)
	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectExec("ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Save(ctx, prism.CustomPrompts{Phase1Template: "p1"}))

	mock.ExpectQuery("SELECT prompts FROM prism_custom_prompts").
		WillReturnRows(sqlmock.NewRows([]string{"prompts"}).AddRow([]byte(`{"phase1Template":"p1"}`)))
	got, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.Phase1Template)

	mock.ExpectExec("DELETE FROM prism_custom_prompts").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Reset(ctx))

	require.NoError(t, mock.ExpectationsWereMet())
}

func setupRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewService(NewMemoryRepo())
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func TestHandlerRoundTrip(t *testing.T) {
	r, svc := setupRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/settings/prompts", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"prompts":null}`, resp.Body.String())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/prompts", strings.NewReader(`{"systemPrompt":"sys"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	stored, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "sys", stored.SystemPrompt)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/settings/prompts", nil))
	require.Equal(t, http.StatusNoContent, resp.Code)
	stored, _ = svc.Get(context.Background())
	assert.Nil(t, stored)
}

func TestHandlerRejectsInvalidJSON(t *testing.T) {
	r, _ := setupRouter(t)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/prompts", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"code":"validation"`)
}

func TestHandlerRejectsUnknownPlaceholder(t *testing.T) {
	r, svc := setupRouter(t)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/prompts", strings.NewReader(`{"phase2Template":"{{phase1Sumary}}"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var body struct {
		Code    string `json:"code"`
		Details struct {
			Unknown map[string][]string `json:"unknown"`
		} `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "validation", body.Code)
	assert.Equal(t, []string{"phase1Sumary"}, body.Details.Unknown["phase2Template"])

	stored, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestHandlerDefaults(t *testing.T) {
	r, _ := setupRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/settings/prompts/defaults", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Templates []prompts.Template `json:"templates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Templates, len(prompts.Defaults()))
	for _, tpl := range body.Templates {
		if tpl.Name == prompts.NamePhase3 {
			assert.Contains(t, tpl.Vars, prompts.VarSocialLanguages)
			return
		}
	}
	t.Fatalf("phase 3 template missing from defaults")
}
