package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"z-novel-wizard/internal/application/catalog"
	"z-novel-wizard/internal/application/interaction"
	"z-novel-wizard/internal/application/library"
	"z-novel-wizard/internal/application/wizard"
	"z-novel-wizard/internal/config"
	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/infrastructure/generation"
	"z-novel-wizard/internal/infrastructure/persistence/kv"
	"z-novel-wizard/internal/infrastructure/persistence/memory"
	"z-novel-wizard/internal/interfaces/http/dto"
	"z-novel-wizard/internal/interfaces/http/handler"
	"z-novel-wizard/internal/interfaces/http/middleware"
)

type testApp struct {
	router  *Router
	session *interaction.Session
	store   *kv.Store
}

func newTestApp(t *testing.T, limiter middleware.RateLimiter, rateLimit bool) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gen := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Hello, "))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("world."))
	}))
	t.Cleanup(gen.Close)

	cfg := &config.Config{
		App:        config.AppConfig{Name: "z-novel-wizard-test", Version: "test", Env: "test"},
		Generation: config.GenerationConfig{APIURL: gen.URL, ConnectTimeout: 5 * time.Second, ReadBufferSize: 64},
		Store:      config.StoreConfig{Driver: "memory"},
		Session:    config.SessionConfig{ProgressStep: 5, ProgressCap: 95, AckDelay: time.Millisecond},
		Wizard:     config.WizardConfig{DefaultCharacter: "主角"},
		Observability: config.ObservabilityConfig{
			Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		},
		Security: config.SecurityConfig{
			RateLimit: config.RateLimitConfig{Enabled: rateLimit, RequestsPerSecond: 1},
		},
	}

	store := kv.NewStore(memory.NewKV(), "")
	session := interaction.NewSession(generation.NewClient(&cfg.Generation), store, nil, &cfg.Session)
	t.Cleanup(session.Close)
	ctrl := wizard.NewController(catalog.New(), store, session, &cfg.Wizard)

	r := New(cfg, Handlers{
		Health:  handler.NewHealthHandler(store, cfg),
		Style:   handler.NewStyleHandler(catalog.New()),
		Wizard:  handler.NewWizardHandler(ctrl),
		Session: handler.NewSessionHandler(session, store),
		Library: handler.NewLibraryHandler(library.NewService(store)),
	}, limiter)

	return &testApp{router: r, session: session, store: store}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

// waitForState 等待会话进入指定状态
func (a *testApp) waitForState(t *testing.T, want entity.SessionState) interaction.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap := a.session.Snapshot()
	for snap.State != want {
		next, err := a.session.Wait(ctx, snap.Version)
		if err != nil {
			t.Fatalf("waiting for %s, last state %s: %v", want, snap.State, err)
		}
		snap = next
	}
	return snap
}

func TestSystemEndpoints(t *testing.T) {
	app := newTestApp(t, nil, false)

	for _, path := range []string{"/health", "/live", "/ready", "/metrics"} {
		if w := app.do(t, http.MethodGet, path, nil); w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}
	if w := app.do(t, http.MethodGet, "/health", nil); w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestListAndCustomStyles(t *testing.T) {
	app := newTestApp(t, nil, false)

	w := app.do(t, http.MethodGet, "/v1/styles", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[dto.Response[dto.StyleListResponse]](t, w)
	if len(resp.Data.Styles) != 3 || resp.Data.Styles[0].Name != "唐家三少" {
		t.Fatalf("unexpected styles %+v", resp.Data.Styles)
	}

	w = app.do(t, http.MethodPut, "/v1/styles/custom", dto.CustomStyleRequest{Name: "我的风格", Tags: []string{" 轻松 "}})
	if w.Code != http.StatusOK {
		t.Fatalf("set custom style: %d %s", w.Code, w.Body.String())
	}
	w = app.do(t, http.MethodPut, "/v1/styles/custom", dto.CustomStyleRequest{Name: "月关"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("built-in name collision should be rejected, got %d", w.Code)
	}
}

func TestSubmitDraftMissingFields(t *testing.T) {
	app := newTestApp(t, nil, false)

	if w := app.do(t, http.MethodPost, "/v1/wizard/style", dto.SelectStyleRequest{Style: "月关"}); w.Code != http.StatusOK {
		t.Fatalf("select style: %d %s", w.Code, w.Body.String())
	}

	w := app.do(t, http.MethodPost, "/v1/wizard/draft", dto.SubmitDraftRequest{Title: "明朝五好家庭"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	resp := decode[dto.ErrorResponse](t, w)
	if resp.Error == nil || resp.Error.Details != wizard.MissingFieldsMessage {
		t.Fatalf("unexpected error body %s", w.Body.String())
	}
	if d, _ := app.store.GetActiveDraft(context.Background()); d != nil {
		t.Fatalf("rejected draft must not be stored")
	}
}

func TestWizardGenerateSaveAndBrowse(t *testing.T) {
	app := newTestApp(t, nil, false)

	app.do(t, http.MethodPost, "/v1/wizard/style", dto.SelectStyleRequest{Style: "唐家三少"})
	w := app.do(t, http.MethodPost, "/v1/wizard/draft", dto.SubmitDraftRequest{Title: "斗罗", Prompt: "少年与双生武魂"})
	if w.Code != http.StatusOK {
		t.Fatalf("submit draft: %d %s", w.Code, w.Body.String())
	}
	st := decode[dto.Response[wizard.State]](t, w)
	if st.Data.Stage != entity.StageInteract || st.Data.ActiveDraft == nil || st.Data.ActiveDraft.Character != "主角" {
		t.Fatalf("unexpected wizard state %+v", st.Data)
	}

	app.waitForState(t, entity.SessionStateCompleted)

	w = app.do(t, http.MethodGet, "/v1/session", nil)
	snap := decode[dto.Response[dto.SessionResponse]](t, w)
	if snap.Data.Document != "Hello, world." || snap.Data.Progress != 100 {
		t.Fatalf("unexpected session %+v", snap.Data.Snapshot)
	}

	w = app.do(t, http.MethodPost, "/v1/session/save", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("save: %d %s", w.Code, w.Body.String())
	}
	saved := decode[dto.Response[dto.SaveResponse]](t, w)
	if saved.Data.Novel == nil || saved.Data.Novel.Content != "Hello, world." {
		t.Fatalf("unexpected saved novel %+v", saved.Data)
	}

	w = app.do(t, http.MethodGet, "/v1/library?q=hello", nil)
	list := decode[dto.Response[dto.LibraryListResponse]](t, w)
	if list.Data.Total != 1 || list.Data.Novels[0].ID != saved.Data.Novel.ID {
		t.Fatalf("unexpected library %+v", list.Data)
	}

	if w = app.do(t, http.MethodGet, "/v1/library/"+saved.Data.Novel.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("get novel: %d", w.Code)
	}
	if w = app.do(t, http.MethodGet, "/v1/library/missing", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown novel, got %d", w.Code)
	}
}

func TestSessionEndpointErrors(t *testing.T) {
	app := newTestApp(t, nil, false)

	if w := app.do(t, http.MethodPost, "/v1/session/start", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("start without draft: expected 422, got %d", w.Code)
	}
	if w := app.do(t, http.MethodDelete, "/v1/session/run", nil); w.Code != http.StatusNotFound {
		t.Fatalf("cancel without run: expected 404, got %d", w.Code)
	}
	if w := app.do(t, http.MethodPost, "/v1/session/save", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("save without draft: expected 422, got %d", w.Code)
	}
	if w := app.do(t, http.MethodPost, "/v1/session/messages", dto.SendMessageRequest{Text: "  "}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty message: expected 422, got %d", w.Code)
	}

	w := app.do(t, http.MethodPost, "/v1/session/messages", dto.SendMessageRequest{Text: "主角再果断一点"})
	if w.Code != http.StatusCreated {
		t.Fatalf("send message: %d %s", w.Code, w.Body.String())
	}
	msg := decode[dto.Response[entity.InteractionMessage]](t, w)
	if !msg.Data.IsFromUser || msg.Data.Text != "主角再果断一点" {
		t.Fatalf("unexpected message %+v", msg.Data)
	}
}

func TestSessionStreamDeliversContent(t *testing.T) {
	app := newTestApp(t, nil, false)
	srv := httptest.NewServer(app.router.Engine())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/session/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	app.do(t, http.MethodPost, "/v1/wizard/style", dto.SelectStyleRequest{Style: "月关"})
	if w := app.do(t, http.MethodPost, "/v1/wizard/draft", dto.SubmitDraftRequest{Title: "锦衣夜行", Prompt: "夏浔的谍海人生"}); w.Code != http.StatusOK {
		t.Fatalf("submit draft: %d", w.Code)
	}

	var (
		event     string
		content   strings.Builder
		completed bool
	)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := []byte(strings.TrimPrefix(line, "data:"))
			switch event {
			case "content":
				var ev dto.ContentEvent
				if err := json.Unmarshal(data, &ev); err != nil {
					t.Fatalf("decode content event: %v", err)
				}
				content.WriteString(ev.Delta)
			case "state":
				var ev dto.StateEvent
				if err := json.Unmarshal(data, &ev); err != nil {
					t.Fatalf("decode state event: %v", err)
				}
				if ev.State == entity.SessionStateCompleted {
					completed = ev.Progress == 100
				}
			case "error":
				t.Fatalf("unexpected error event %s", data)
			}
		}
		if completed && content.String() == "Hello, world." {
			return
		}
	}
	t.Fatalf("stream ended early: completed=%v content=%q err=%v", completed, content.String(), scanner.Err())
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

func TestRateLimitRejects(t *testing.T) {
	app := newTestApp(t, denyLimiter{}, true)

	if w := app.do(t, http.MethodGet, "/v1/styles", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w := app.do(t, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("system endpoints are not rate limited, got %d", w.Code)
	}
}
