package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"unicode/utf8"

	"z-novel-wizard/internal/config"
	"z-novel-wizard/internal/domain/entity"
	"z-novel-wizard/internal/domain/port"
	apperrors "z-novel-wizard/pkg/errors"
)

func newTestClient(url string) *Client {
	return NewClient(&config.GenerationConfig{APIURL: url + "/", ReadBufferSize: 8})
}

func drain(t *testing.T, stream port.FragmentStream) []string {
	t.Helper()
	var fragments []string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return fragments
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		fragments = append(fragments, chunk)
	}
}

func TestGenerateStreamsFragments(t *testing.T) {
	var got entity.DraftRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		flusher := w.(http.Flusher)
		for _, part := range []string{"Hello, ", "world."} {
			_, _ = io.WriteString(w, part)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	draft := entity.NewDraftRequest("唐家三少", "Title", "Prompt", "主角")
	stream, err := newTestClient(srv.URL).Generate(context.Background(), draft)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	defer stream.Close()

	doc := strings.Join(drain(t, stream), "")
	if doc != "Hello, world." {
		t.Fatalf("unexpected document %q", doc)
	}
	if got != *draft {
		t.Fatalf("request body mismatch: %+v", got)
	}
}

func TestGenerateWireFieldNames(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).Generate(context.Background(), entity.NewDraftRequest("月关", "T", "P", "主角"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	drain(t, stream)

	for _, key := range []string{"style", "title", "background", "character", "plot", "other_reqs"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing wire field %q in %v", key, raw)
		}
	}
}

func TestGenerateRejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "service message", body: `{"error":"quota exceeded"}`, wantMsg: "quota exceeded"},
		{name: "empty body", body: ``, wantMsg: DefaultFailureMessage},
		{name: "blank error", body: `{"error":""}`, wantMsg: DefaultFailureMessage},
		{name: "not json", body: `boom`, wantMsg: DefaultFailureMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Generate(context.Background(), entity.NewDraftRequest("月关", "T", "P", "主角"))
			if !errors.Is(err, apperrors.ErrGenerationRequest) {
				t.Fatalf("expected generation request error, got %v", err)
			}
			if appErr := apperrors.AsAppError(err); appErr.Message != tt.wantMsg {
				t.Fatalf("expected message %q, got %q", tt.wantMsg, appErr.Message)
			}
		})
	}
}

func TestGenerateTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Generate(context.Background(), entity.NewDraftRequest("月关", "T", "P", "主角"))
	if !errors.Is(err, apperrors.ErrGenerationRequest) {
		t.Fatalf("expected generation request error, got %v", err)
	}
}

func TestFragmentStreamSplitsRunesSafely(t *testing.T) {
	text := "江湖路远，刀光剑影。"
	body := io.NopCloser(iotest.OneByteReader(strings.NewReader(text)))
	stream := newFragmentStream(body, 2, nil)

	fragments := drain(t, stream)
	for _, f := range fragments {
		if !utf8.ValidString(f) {
			t.Fatalf("fragment %q is not valid UTF-8", f)
		}
	}
	if got := strings.Join(fragments, ""); got != text {
		t.Fatalf("expected %q, got %q", text, got)
	}
}

func TestFragmentStreamTruncatedRune(t *testing.T) {
	raw := []byte("ab你")
	body := io.NopCloser(strings.NewReader(string(raw[:len(raw)-1])))
	stream := newFragmentStream(body, 16, nil)

	got := strings.Join(drain(t, stream), "")
	if got != "ab"+string(utf8.RuneError) {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestFragmentStreamConsumedOnce(t *testing.T) {
	stream := newFragmentStream(io.NopCloser(strings.NewReader("x")), 4, nil)
	drain(t, stream)

	if _, err := stream.Recv(); !errors.Is(err, apperrors.ErrStreamAlreadyConsumed) {
		t.Fatalf("expected already consumed, got %v", err)
	}

	closed := newFragmentStream(io.NopCloser(strings.NewReader("x")), 4, nil)
	_ = closed.Close()
	if _, err := closed.Recv(); !errors.Is(err, apperrors.ErrStreamAlreadyConsumed) {
		t.Fatalf("expected already consumed after close, got %v", err)
	}
}

func TestFragmentStreamReadError(t *testing.T) {
	body := io.NopCloser(io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(errors.New("connection reset"))))
	stream := newFragmentStream(body, 64, nil)

	first, err := stream.Recv()
	if err != nil || first != "partial" {
		t.Fatalf("unexpected first fragment %q err=%v", first, err)
	}
	if _, err := stream.Recv(); !errors.Is(err, apperrors.ErrStreamRead) {
		t.Fatalf("expected stream read error, got %v", err)
	}
}

func TestGenerateCancelAbortsRead(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "start")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := newTestClient(srv.URL).Generate(ctx, entity.NewDraftRequest("月关", "T", "P", "主角"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatalf("first recv: %v", err)
	}
	cancel()
	if _, err := stream.Recv(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected error after cancel, got %v", err)
	}
}
