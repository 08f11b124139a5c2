package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/bodul/dailyword/internal/game"
	"github.com/bodul/dailyword/internal/puzzles"
	"github.com/charmbracelet/log"
)

var quietLogger = log.New(io.Discard)

func newTestServer(t *testing.T, extractor Extractor) *Server {
	t.Helper()
	store := NewStore(puzzles.NewMemoryRepository(), puzzles.DefaultPuzzle(), game.DefaultConfig(), quietLogger)
	srv := NewServer(store, extractor, quietLogger)
	t.Cleanup(srv.Close)
	return srv
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) sessionView {
	t.Helper()
	var v sessionView
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return v
}

func createSession(t *testing.T, srv *Server, body string) sessionView {
	t.Helper()
	w := do(srv, "POST", "/api/sessions", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decodeView(t, w)
}

func sendKeys(t *testing.T, srv *Server, id, keys string) sessionView {
	t.Helper()
	var v sessionView
	for i, k := range keys {
		body := `{"type":"key","key":"` + string(k) + `","stage":` + string(rune('1'+i%9)) + `}`
		w := do(srv, "POST", "/api/sessions/"+id+"/input", body)
		if w.Code != http.StatusOK {
			t.Fatalf("key %q: expected 200, got %d: %s", k, w.Code, w.Body.String())
		}
		v = decodeView(t, w)
	}
	return v
}

const testPuzzle = `{
  "id": "petit",
  "title": "Petit",
  "across": {"1": {"row": 0, "col": 0, "answer": "GO", "clue": "Leave"}},
  "down": {"1": {"row": 0, "col": 0, "answer": "GUM", "clue": "Chew"}}
}`

func TestGamePageRoute(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(srv, "GET", "/play/abc123", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("expected text/html, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "Mots croisés") {
		t.Fatal("game page does not contain expected title")
	}

	if w := do(srv, "GET", "/game.js", ""); w.Code != http.StatusOK {
		t.Fatalf("game.js: expected 200, got %d", w.Code)
	}
}

func TestCreatePuzzleJSON(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(srv, "POST", "/api/puzzles", testPuzzle)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = do(srv, "GET", "/api/puzzles/petit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get puzzle: expected 200, got %d", w.Code)
	}
	var p puzzles.Puzzle
	json.NewDecoder(w.Body).Decode(&p)
	if p.Title != "Petit" || p.Down["1"].Clue != "Chew" || p.Down["1"].Answer != "" {
		t.Fatalf("unexpected puzzle %+v", p)
	}

	w = do(srv, "GET", "/api/puzzles", "")
	var list []puzzles.Puzzle
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != 1 {
		t.Fatalf("expected 1 puzzle, got %d", len(list))
	}

	if w := do(srv, "GET", "/api/puzzles/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPuzzleRoutesHideAnswers(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(srv, "POST", "/api/puzzles", testPuzzle)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	bodies := map[string]string{"POST /api/puzzles": w.Body.String()}

	ctx := context.Background()
	if err := srv.store.Puzzles().SetPointer(ctx, puzzles.Pointer{PuzzleID: "petit", Day: "2026-03-01"}); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{"/api/puzzles", "/api/puzzles/petit", "/api/puzzles/today"} {
		w := do(srv, "GET", path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		bodies["GET "+path] = w.Body.String()
	}

	for route, body := range bodies {
		if strings.Contains(body, `"answer"`) || strings.Contains(body, "GUM") {
			t.Errorf("%s leaks answers: %s", route, body)
		}
		if !strings.Contains(body, "Chew") {
			t.Errorf("%s lost the clue text: %s", route, body)
		}
	}

	stored, err := srv.store.Puzzles().Get(ctx, "petit")
	if err != nil || stored.Down["1"].Answer != "GUM" {
		t.Fatalf("stored puzzle must keep its answers: %+v %v", stored, err)
	}
}

func TestCreatePuzzleRejectsConflict(t *testing.T) {
	srv := newTestServer(t, nil)

	body := strings.Replace(testPuzzle, `"GUM"`, `"HUM"`, 1)
	w := do(srv, "POST", "/api/puzzles", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "conflicts") {
		t.Fatalf("expected conflict message, got %s", w.Body.String())
	}
}

type fakeExtractor struct {
	got  string
	fail bool
}

func (f *fakeExtractor) ExtractPuzzle(_ context.Context, data []byte, mimeType string) (*puzzles.Puzzle, error) {
	f.got = mimeType
	if f.fail {
		return nil, errors.New("model unavailable")
	}
	p := puzzles.DefaultPuzzle()
	p.ID = ""
	return p, nil
}

func imageRequest(t *testing.T, mimeType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="grille.png"`)
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("\x89PNG fake"))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/puzzles", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreatePuzzleFromImage(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, imageRequest(t, "image/png"))
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
	})

	t.Run("wrong format", func(t *testing.T) {
		srv := newTestServer(t, &fakeExtractor{})
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, imageRequest(t, "image/gif"))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("extractor failure", func(t *testing.T) {
		srv := newTestServer(t, &fakeExtractor{fail: true})
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, imageRequest(t, "image/png"))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})

	t.Run("ok", func(t *testing.T) {
		ex := &fakeExtractor{}
		srv := newTestServer(t, ex)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, imageRequest(t, "image/png"))
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		if ex.got != "image/png" {
			t.Fatalf("extractor got mime %q", ex.got)
		}
		var p puzzles.Puzzle
		json.NewDecoder(w.Body).Decode(&p)
		if p.ID == "" {
			t.Fatal("saved puzzle should have an id")
		}
	})
}

func TestTodayPuzzle(t *testing.T) {
	srv := newTestServer(t, nil)

	if w := do(srv, "GET", "/api/puzzles/today", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without pointer, got %d", w.Code)
	}

	do(srv, "POST", "/api/puzzles", testPuzzle)
	ctx := context.Background()
	if err := srv.store.Puzzles().SetPointer(ctx, puzzles.Pointer{PuzzleID: "petit", Day: "2026-03-01"}); err != nil {
		t.Fatal(err)
	}

	w := do(srv, "GET", "/api/puzzles/today", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// New sessions follow the pointer.
	v := createSession(t, srv, "")
	if v.PuzzleID != "petit" || v.State.Rows != 3 {
		t.Fatalf("expected session on petit, got %s (%d rows)", v.PuzzleID, v.State.Rows)
	}
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t, nil)

	v := createSession(t, srv, "")
	if v.PuzzleID != "default" {
		t.Fatalf("expected fallback puzzle, got %q", v.PuzzleID)
	}
	if v.State.Selection == nil || v.State.Selection.Number != "1" {
		t.Fatalf("expected cursor on 1-across, got %+v", v.State.Selection)
	}
	if v.State.Cells[0][0].Answer != "" || v.State.Clues[game.Across][0].Answer != "" {
		t.Fatal("answers must be hidden while playing")
	}

	v = sendKeys(t, srv, v.ID, "crane")
	if v.State.Phase != game.PhasePending {
		t.Fatalf("expected pending phase, got %s", v.State.Phase)
	}
	if len(v.State.Pending) != 1 || v.State.Pending[0].String() != "1-across" {
		t.Fatalf("expected 1-across pending, got %v", v.State.Pending)
	}
	if len(v.State.Completed) != 0 {
		t.Fatal("record must not change before the next frame")
	}
	if v.State.Cells[0][2].Guess != "A" {
		t.Fatalf("expected uppercased guess, got %q", v.State.Cells[0][2].Guess)
	}

	if n := srv.tickFrames(); n != 1 {
		t.Fatalf("expected 1 published frame, got %d", n)
	}

	w := do(srv, "GET", "/api/sessions/"+v.ID, "")
	v = decodeView(t, w)
	if v.State.Phase != game.PhaseCommitted {
		t.Fatalf("expected committed phase, got %s", v.State.Phase)
	}
	id := game.WordID{Number: "1", Direction: game.Across}
	if _, ok := v.State.Completed[id]; !ok {
		t.Fatalf("expected 1-across completed, got %v", v.State.Completed)
	}
	if len(v.State.Recent) != 1 {
		t.Fatalf("expected 1-across recent, got %v", v.State.Recent)
	}
}

func TestInputErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	v := createSession(t, srv, "")

	tests := []struct {
		name string
		body string
		code int
	}{
		{"unknown key", `{"type":"key","key":"F1"}`, http.StatusBadRequest},
		{"unknown type", `{"type":"swipe"}`, http.StatusBadRequest},
		{"bad direction", `{"type":"clue","direction":"up","number":"1"}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
		{"click", `{"type":"click","row":4,"col":2}`, http.StatusOK},
		{"clue", `{"type":"clue","direction":"down","number":"3"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, "POST", "/api/sessions/"+v.ID+"/input", tt.body)
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}

	if w := do(srv, "POST", "/api/sessions/nope/input", `{"type":"key","key":"A"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreateSessionUnknownPuzzle(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(srv, "POST", "/api/sessions", `{"puzzle_id":"nonexistent"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestLoadPuzzle(t *testing.T) {
	srv := newTestServer(t, nil)
	do(srv, "POST", "/api/puzzles", testPuzzle)
	v := createSession(t, srv, "")
	sendKeys(t, srv, v.ID, "cr")

	if w := do(srv, "POST", "/api/sessions/"+v.ID+"/load", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without puzzle_id, got %d", w.Code)
	}
	if w := do(srv, "POST", "/api/sessions/"+v.ID+"/load", `{"puzzle_id":"nope"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w := do(srv, "POST", "/api/sessions/"+v.ID+"/load", `{"puzzle_id":"petit"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	v = decodeView(t, w)
	if v.PuzzleID != "petit" || v.State.Rows != 3 || v.State.Cols != 2 {
		t.Fatalf("expected petit 3x2, got %s %dx%d", v.PuzzleID, v.State.Rows, v.State.Cols)
	}
	if v.State.Cells[0][0].Guess != "" {
		t.Fatal("load must clear guesses")
	}
}

func readEvent(t *testing.T, c *client) Event {
	t.Helper()
	select {
	case msg := <-c.ch:
		var evt Event
		if err := json.Unmarshal([]byte(msg), &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestShareAnalytics(t *testing.T) {
	srv := newTestServer(t, nil)
	v := createSession(t, srv, "")

	c := srv.sse.Register(v.ID)
	defer srv.sse.Unregister(c)

	w := do(srv, "POST", "/api/sessions/"+v.ID+"/share", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	evt := readEvent(t, c)
	if evt.Type != EventAnalytics {
		t.Fatalf("expected analytics event, got %s", evt.Type)
	}
	data, _ := evt.Data.(map[string]any)
	if data["kind"] != string(game.EventShare) {
		t.Fatalf("expected share kind, got %v", evt.Data)
	}

	if w := do(srv, "POST", "/api/sessions/nope/share", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPublicSnapshot(t *testing.T) {
	snap := game.Snapshot{
		Cells: [][]game.Cell{{{Used: true, Answer: "A", Guess: "B"}}},
		Clues: map[game.Direction][]game.Clue{game.Across: {{Number: "1", Answer: "A"}}},
	}
	out := publicSnapshot(snap)
	if out.Cells[0][0].Answer != "" || out.Clues[game.Across][0].Answer != "" {
		t.Fatal("answers should be hidden")
	}
	if out.Cells[0][0].Guess != "B" {
		t.Fatal("guesses should be kept")
	}

	snap = game.Snapshot{
		Cells:    [][]game.Cell{{{Used: true, Answer: "A"}}},
		Complete: true,
	}
	if publicSnapshot(snap).Cells[0][0].Answer != "A" {
		t.Fatal("answers should be revealed once complete")
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(srv, "GET", "/", "")

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}

	for key, expected := range headers {
		if got := w.Header().Get(key); got != expected {
			t.Errorf("header %s: expected %q, got %q", key, expected, got)
		}
	}

	csp := w.Header().Get("Content-Security-Policy")
	if csp == "" {
		t.Error("Content-Security-Policy header missing")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3, time.Second)
	defer rl.Close()

	// First 3 should pass.
	for i := range 3 {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	// 4th should be blocked.
	if rl.allow("1.2.3.4") {
		t.Fatal("4th request should be rate limited")
	}

	// Different IP should still be allowed.
	if !rl.allow("5.6.7.8") {
		t.Fatal("different IP should be allowed")
	}
}

func TestRateLimiterRefill(t *testing.T) {
	rl := newRateLimiter(2, time.Second)
	defer rl.Close()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("ip")
	rl.allow("ip")
	if rl.allow("ip") {
		t.Fatal("bucket should be empty")
	}

	now = now.Add(time.Second)
	if !rl.allow("ip") {
		t.Fatal("bucket should refill after one interval")
	}
}

func TestInputRateLimited(t *testing.T) {
	srv := newTestServer(t, nil)
	v := createSession(t, srv, "")
	srv.moveRL.rate = 1
	srv.moveRL.visitors = map[string]*bucket{}

	do(srv, "POST", "/api/sessions/"+v.ID+"/input", `{"type":"key","key":"ArrowRight"}`)
	w := do(srv, "POST", "/api/sessions/"+v.ID+"/input", `{"type":"key","key":"ArrowRight"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}
