package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prism-backend/internal/shared/config"
)

func devConfig() config.Config {
	return config.Config{
		Env:               "dev",
		CORSAllowOrigin:   []string{"http://localhost:3000"},
		RateLimitRPM:      10,
		HistoryLimit:      50,
		AnalyzeTimeout:    time.Minute,
		RegenerateTimeout: time.Minute,
	}
}

func TestBuildInMemoryWithoutCredentials(t *testing.T) {
	app, err := Build(context.Background(), devConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.DB != nil {
		t.Fatalf("expected in-memory storage")
	}
	if app.Pipeline.Recorder == nil {
		t.Fatalf("expected history recorder to be wired")
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"llm":false`) {
		t.Fatalf("unexpected health: %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	if resp.Code != http.StatusOK || strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Fatalf("unexpected runs: %d %s", resp.Code, resp.Body.String())
	}
}

func TestAnalyzeWithoutProviderStreamsError(t *testing.T) {
	app, err := Build(context.Background(), devConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	body := `{"input":{"productName":"炭酸水","category":"飲料","challenges":"認知が低い","researchDepth":"standard"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event stream, got %q", ct)
	}
	out := resp.Body.String()
	if !strings.Contains(out, `"type":"error"`) {
		t.Fatalf("expected terminal error event, got:\n%s", out)
	}
	if strings.Contains(out, `"type":"result"`) {
		t.Fatalf("unexpected result event:\n%s", out)
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := devConfig()
	cfg.Env = "production"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}
