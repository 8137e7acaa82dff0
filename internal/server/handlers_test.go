package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yaniv/internal/broadcast"
	"yaniv/internal/room"
)

func newTestServer() (http.Handler, *room.Manager) {
	mgr := room.NewManager(nil, broadcast.NewHub())
	return NewRouter(mgr), mgr
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestCreateJoinStartActionFlow(t *testing.T) {
	h, _ := newTestServer()

	var created createResponse
	rec := postJSON(t, h, "/api/create", createRequest{Name: "Alice", AICount: 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &created)

	var joined joinResponse
	rec = postJSON(t, h, "/api/join", joinRequest{Code: created.Code, Name: "Bob"})
	if rec.Code != http.StatusOK {
		t.Fatalf("join: status %d body %s", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &joined)

	rec = postJSON(t, h, "/api/start", startRequest{Code: created.Code, Pid: created.Pid})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status %d body %s", rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/room/"+created.Code+"?pid="+created.Pid, nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get room: status %d body %s", getRec.Code, getRec.Body.String())
	}
	if !strings.Contains(getRec.Body.String(), `"status":"playing"`) {
		t.Fatalf("expected a playing room snapshot, got %s", getRec.Body.String())
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	h, _ := newTestServer()
	rec := postJSON(t, h, "/api/create", createRequest{Name: "", AICount: 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a blank name, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestJoinUnknownRoomReturnsNotFound(t *testing.T) {
	h, _ := newTestServer()
	rec := postJSON(t, h, "/api/join", joinRequest{Code: "zzzzz", Name: "Bob"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown room, got %d", rec.Code)
	}
	var env struct {
		Error string `json:"error"`
	}
	decodeInto(t, rec, &env)
	if env.Error == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestStartByNonCreatorIsForbidden(t *testing.T) {
	h, _ := newTestServer()
	var created createResponse
	rec := postJSON(t, h, "/api/create", createRequest{Name: "Alice"})
	decodeInto(t, rec, &created)

	var joined joinResponse
	rec = postJSON(t, h, "/api/join", joinRequest{Code: created.Code, Name: "Bob"})
	decodeInto(t, rec, &joined)

	rec = postJSON(t, h, "/api/start", startRequest{Code: created.Code, Pid: joined.Pid})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when a non-creator starts, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestPlayAgainRejectedBeforeGameFinishes(t *testing.T) {
	h, _ := newTestServer()
	var created createResponse
	rec := postJSON(t, h, "/api/create", createRequest{Name: "Alice"})
	decodeInto(t, rec, &created)
	postJSON(t, h, "/api/join", joinRequest{Code: created.Code, Name: "Bob"})
	postJSON(t, h, "/api/start", startRequest{Code: created.Code, Pid: created.Pid})

	rec = postJSON(t, h, "/api/playAgain", codePidRequest{Code: created.Code, Pid: created.Pid})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for playAgain before the game finishes, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestEventsStreamSendsInitialSnapshot(t *testing.T) {
	h, _ := newTestServer()
	var created createResponse
	rec := postJSON(t, h, "/api/create", createRequest{Name: "Alice"})
	decodeInto(t, rec, &created)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events/"+created.Code+"/"+created.Pid, nil).WithContext(ctx)
	sseRec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(sseRec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("events handler did not return after context cancellation")
	}

	if !strings.Contains(sseRec.Body.String(), created.Code) {
		t.Fatalf("expected the initial snapshot to be streamed, got %q", sseRec.Body.String())
	}
}
