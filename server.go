package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bodul/dailyword/internal/game"
	"github.com/bodul/dailyword/internal/puzzles"
	"github.com/charmbracelet/log"
)

//go:embed frontend
var frontendFS embed.FS

const maxUploadSize = 10 << 20 // 10 Mo

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Extractor turns a photo of a solved grid into a puzzle.
type Extractor interface {
	ExtractPuzzle(ctx context.Context, imageData []byte, mimeType string) (*puzzles.Puzzle, error)
}

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
	stop     chan struct{}
	now      func() time.Time
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		stop:     make(chan struct{}),
		now:      time.Now,
	}
	go rl.cleanup(time.Minute, 5*time.Minute)
	return rl
}

// cleanup drops stale entries until Close.
func (rl *rateLimiter) cleanup(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, b := range rl.visitors {
				if rl.now().Sub(b.lastSeen) > idle {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) Close() { close(rl.stop) }

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: now}
		return true
	}

	// Refill tokens based on elapsed time.
	refill := int(now.Sub(b.lastSeen) / rl.interval)
	if refill > 0 {
		b.tokens += refill * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastSeen = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Server is the main HTTP server.
type Server struct {
	mux       *http.ServeMux
	store     *Store
	extractor Extractor
	sse       *Broadcaster
	analytics *analytics
	uploadRL  *rateLimiter
	moveRL    *rateLimiter
	logger    *log.Logger
}

// NewServer creates a configured HTTP server. extractor may be nil, in
// which case photo uploads are refused.
func NewServer(store *Store, extractor Extractor, logger *log.Logger) *Server {
	sse := NewBroadcaster()
	s := &Server{
		mux:       http.NewServeMux(),
		store:     store,
		extractor: extractor,
		sse:       sse,
		analytics: &analytics{logger: logger, sse: sse},
		uploadRL:  newRateLimiter(5, time.Minute),  // 5 uploads/min per IP
		moveRL:    newRateLimiter(60, time.Second), // 60 inputs/sec per IP
		logger:    logger,
	}
	s.routes()
	return s
}

// Close stops background cleanup.
func (s *Server) Close() {
	s.uploadRL.Close()
	s.moveRL.Close()
}

func (s *Server) routes() {
	// Puzzle API
	s.mux.HandleFunc("POST /api/puzzles", s.handleCreatePuzzle)
	s.mux.HandleFunc("GET /api/puzzles", s.handleListPuzzles)
	s.mux.HandleFunc("GET /api/puzzles/today", s.handleTodayPuzzle)
	s.mux.HandleFunc("GET /api/puzzles/{id}", s.handleGetPuzzle)

	// Session API
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/input", s.handleInput)
	s.mux.HandleFunc("POST /api/sessions/{id}/load", s.handleLoad)
	s.mux.HandleFunc("POST /api/sessions/{id}/share", s.handleShare)
	s.mux.HandleFunc("GET /api/sessions/{id}/events", s.handleSessionEvents)
	s.mux.HandleFunc("GET /api/sessions/{id}/ws", s.handleSessionWS)

	// Frontend static files
	frontendDir, _ := fs.Sub(frontendFS, "frontend")
	fileServer := http.FileServer(http.FS(frontendDir))
	s.mux.HandleFunc("GET /play/{id}", s.handleGamePage)
	s.mux.Handle("GET /", fileServer)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
	s.mux.ServeHTTP(w, r)
}

// --- Puzzle handlers ---

// POST /api/puzzles: a JSON/YAML puzzle document, or a multipart photo
// analyzed by the extractor.
func (s *Server) handleCreatePuzzle(w http.ResponseWriter, r *http.Request) {
	if !s.uploadRL.allow(clientIP(r)) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var (
		p   *puzzles.Puzzle
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		p, err = s.extractUpload(r)
		if err != nil {
			var he *httpError
			if errors.As(err, &he) {
				jsonError(w, he.msg, he.code)
				return
			}
			s.logger.Error("gemini extract", "err", err)
			jsonError(w, "Erreur lors de l'analyse de la grille", http.StatusInternalServerError)
			return
		}
	} else {
		body, rerr := io.ReadAll(r.Body)
		if rerr != nil {
			jsonError(w, "Grille trop volumineuse (max 10 Mo)", http.StatusRequestEntityTooLarge)
			return
		}
		p, err = puzzles.Parse(body)
		if err != nil {
			jsonError(w, "Grille invalide : "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	saved, err := s.store.Puzzles().Save(r.Context(), p)
	if err != nil {
		s.logger.Error("save puzzle", "err", err)
		jsonError(w, "Erreur d'enregistrement de la grille", http.StatusInternalServerError)
		return
	}
	s.logger.Info("puzzle saved", "puzzle", saved.ID, "title", saved.Title)

	writeJSON(w, http.StatusCreated, saved.Public())
}

// httpError carries a client-facing message out of a helper.
type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string { return e.msg }

func (s *Server) extractUpload(r *http.Request) (*puzzles.Puzzle, error) {
	if s.extractor == nil {
		return nil, &httpError{http.StatusServiceUnavailable, "Analyse d'image non configurée"}
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, &httpError{http.StatusRequestEntityTooLarge, "Image trop volumineuse (max 10 Mo)"}
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, &httpError{http.StatusBadRequest, "Champ 'image' requis"}
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !allowedMIME[mimeType] {
		return nil, &httpError{http.StatusBadRequest, "Format accepté : JPEG ou PNG"}
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		return nil, &httpError{http.StatusInternalServerError, "Erreur de lecture de l'image"}
	}
	return s.extractor.ExtractPuzzle(r.Context(), imageData, mimeType)
}

// GET /api/puzzles: list all puzzles.
func (s *Server) handleListPuzzles(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Puzzles().List(r.Context())
	if err != nil {
		s.logger.Error("list puzzles", "err", err)
		jsonError(w, "Erreur de lecture des grilles", http.StatusInternalServerError)
		return
	}
	public := make([]*puzzles.Puzzle, len(list))
	for i, p := range list {
		public[i] = p.Public()
	}
	writeJSON(w, http.StatusOK, public)
}

// GET /api/puzzles/today: the puzzle of the day.
func (s *Server) handleTodayPuzzle(w http.ResponseWriter, r *http.Request) {
	p, err := puzzles.Today(r.Context(), s.store.Puzzles())
	s.writePuzzle(w, p, err)
}

// GET /api/puzzles/{id}: a single puzzle.
func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Puzzles().Get(r.Context(), r.PathValue("id"))
	s.writePuzzle(w, p, err)
}

func (s *Server) writePuzzle(w http.ResponseWriter, p *puzzles.Puzzle, err error) {
	if errors.Is(err, puzzles.ErrNotFound) {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get puzzle", "err", err)
		jsonError(w, "Erreur de lecture de la grille", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p.Public())
}

// --- Session handlers ---

type sessionView struct {
	ID        string        `json:"id"`
	PuzzleID  string        `json:"puzzle_id"`
	CreatedAt time.Time     `json:"created_at"`
	State     game.Snapshot `json:"state"`
}

func viewOf(g *GameSession) sessionView {
	puzzleID, snap := g.View()
	return sessionView{
		ID:        g.ID,
		PuzzleID:  puzzleID,
		CreatedAt: g.CreatedAt,
		State:     publicSnapshot(snap),
	}
}

// POST /api/sessions: start a game on a puzzle, today's by default.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PuzzleID string `json:"puzzle_id"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			jsonError(w, "Requête invalide", http.StatusBadRequest)
			return
		}
	}

	g, err := s.store.CreateGame(r.Context(), req.PuzzleID, s.analytics.tracker)
	if errors.Is(err, puzzles.ErrNotFound) {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("create session", "err", err)
		jsonError(w, "Impossible de créer la partie", http.StatusInternalServerError)
		return
	}
	s.logger.Info("session created", "session", g.ID, "puzzle", g.PuzzleID())

	writeJSON(w, http.StatusCreated, viewOf(g))
}

// GET /api/sessions/{id}: current state.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	g := s.store.GetGame(r.PathValue("id"))
	if g == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(g))
}

// POST /api/sessions/{id}/input: one key, click or clue selection.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	if !s.moveRL.allow(clientIP(r)) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	g := s.store.GetGame(r.PathValue("id"))
	if g == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}

	if _, err := s.applyInput(g, in); err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, game.ErrNoPuzzle) {
			code = http.StatusConflict
		}
		jsonError(w, inputErrorMessage(err), code)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(g))
}

// POST /api/sessions/{id}/load: switch the session to another puzzle.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	g := s.store.GetGame(r.PathValue("id"))
	if g == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		PuzzleID string `json:"puzzle_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PuzzleID == "" {
		jsonError(w, "Champ 'puzzle_id' requis", http.StatusBadRequest)
		return
	}

	p, err := s.store.Puzzles().Get(r.Context(), req.PuzzleID)
	if errors.Is(err, puzzles.ErrNotFound) {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get puzzle", "err", err)
		jsonError(w, "Erreur de lecture de la grille", http.StatusInternalServerError)
		return
	}

	if err := g.Load(p.ID, p.Clues()); err != nil {
		jsonError(w, "Grille invalide : "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.publishSnapshot(g)
	writeJSON(w, http.StatusOK, viewOf(g))
}

// POST /api/sessions/{id}/share: record a share action.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	g := s.store.GetGame(r.PathValue("id"))
	if g == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}
	g.Share()
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/sessions/{id}/events: SSE stream.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	g := s.store.GetGame(r.PathValue("id"))
	if g == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	s.sse.ServeSSE(w, r, g.ID, func(c *client) {
		s.logger.Debug("event stream connected", "session", g.ID, "subscribers", s.sse.ClientCount(g.ID))
		c.send(Event{Type: EventSnapshot, Data: publicSnapshot(g.Snapshot())})
	})
}

// --- Frontend page handlers ---

// GET /play/{id}: serve the game page.
func (s *Server) handleGamePage(w http.ResponseWriter, _ *http.Request) {
	data, _ := frontendFS.ReadFile("frontend/game.html")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// --- Helpers ---

// applyInput runs in against g and publishes the new state when it changed.
func (s *Server) applyInput(g *GameSession, in Input) (bool, error) {
	changed, err := g.Apply(in)
	if err != nil {
		return false, err
	}
	if changed {
		s.publishSnapshot(g)
	}
	return changed, nil
}

func (s *Server) publishSnapshot(g *GameSession) {
	s.sse.Publish(g.ID, Event{Type: EventSnapshot, Data: publicSnapshot(g.Snapshot())})
}

func inputErrorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrUnknownKey):
		return "Touche inconnue"
	case errors.Is(err, game.ErrDiagonalMove):
		return "Déplacement en diagonale impossible"
	case errors.Is(err, game.ErrNoPuzzle):
		return "Aucune grille chargée"
	case errors.Is(err, errInvalidInput):
		return "Action invalide"
	}
	return "Requête invalide"
}

// publicSnapshot hides the answers until the grid is solved.
func publicSnapshot(snap game.Snapshot) game.Snapshot {
	if snap.Complete {
		return snap
	}
	for r := range snap.Cells {
		for c := range snap.Cells[r] {
			snap.Cells[r][c].Answer = ""
		}
	}
	for d, list := range snap.Clues {
		for i := range list {
			list[i].Answer = ""
		}
		snap.Clues[d] = list
	}
	return snap
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
