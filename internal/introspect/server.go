// Package introspect implements the optional, read-only HTTP surface (C9)
// used to inspect a running node's database from outside the gossip and
// control protocols. Structure is lifted straight from the teacher's
// internal/api package: a mux.Router wrapped in an http.Server, the same
// logging/recovery/CORS middleware chain, the same JSON envelope helpers.
package introspect

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/spaolacci/murmur3"

	"github.com/chatgossip/node/internal/gossip"
)

// Database is the subset of gossip.Database the introspection server reads.
// Narrowed to an interface so handler tests can use a fake store.
type Database interface {
	StatusVector() gossip.Digest
	ChatLog() []string
	Get(origin gossip.OriginID, seq gossip.SeqNum) (string, bool)
}

// Server is the read-only HTTP introspection surface.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	store      Database
	self       gossip.OriginID
	startTime  time.Time
}

// NewServer builds a Server bound to addr, answering on behalf of self.
func NewServer(addr string, self gossip.OriginID, store Database) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		store:     store,
		self:      self,
		startTime: time.Now(),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(loggingMiddleware)
	s.router.Use(recoveryMiddleware)
	s.router.Use(corsMiddleware)

	s.router.HandleFunc("/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/database", s.handleDatabase).Methods("GET")
	s.router.HandleFunc("/database/{origin}/messages", s.handleOriginMessages).Methods("GET")
}

// Start blocks serving HTTP until Stop is called or ListenAndServe fails.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying mux.Router, for tests that exercise
// handlers directly without binding a socket.
func (s *Server) Router() *mux.Router {
	return s.router
}

type statusResponse struct {
	Self         int    `json:"self"`
	Uptime       string `json:"uptime"`
	MessageCount int    `json:"messageCount"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Self:         int(s.self),
		Uptime:       formatUptime(time.Since(s.startTime)),
		MessageCount: len(s.store.ChatLog()),
	})
}

type statusPair struct {
	Origin        int `json:"origin"`
	LowestMissing int `json:"lowestMissing"`
}

func (s *Server) handleDatabase(w http.ResponseWriter, r *http.Request) {
	digest := s.store.StatusVector()
	out := make([]statusPair, 0, len(digest))
	for _, p := range digest {
		out = append(out, statusPair{Origin: int(p.Origin), LowestMissing: int(p.Low)})
	}
	writeJSON(w, http.StatusOK, out)
}

type messagesResponse struct {
	Origin   int      `json:"origin"`
	Messages []string `json:"messages"`
}

func (s *Server) handleOriginMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	origin, ok := parseOrigin(vars["origin"])
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid origin")
		return
	}

	low, known := s.lowestMissing(origin)
	if !known {
		writeJSON(w, http.StatusOK, messagesResponse{Origin: int(origin), Messages: nil})
		return
	}

	messages := make([]string, 0, int(low))
	for seq := gossip.SeqNum(0); seq < low; seq++ {
		if text, ok := s.store.Get(origin, seq); ok {
			messages = append(messages, text)
			logFingerprint(origin, seq, text)
		}
	}
	writeJSON(w, http.StatusOK, messagesResponse{Origin: int(origin), Messages: messages})
}

func (s *Server) lowestMissing(origin gossip.OriginID) (gossip.SeqNum, bool) {
	for _, p := range s.store.StatusVector() {
		if p.Origin == origin {
			return p.Low, true
		}
	}
	return 0, false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

func formatUptime(d time.Duration) string {
	return d.Round(time.Second).String()
}

func parseOrigin(raw string) (gossip.OriginID, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return gossip.OriginID(n), true
}

// logFingerprint logs a stable, content-derived fingerprint for a message
// served over this endpoint rather than the message text itself, the same
// murmur3-hash-as-log-key pattern the teacher's hash ring used to place
// keys, repurposed here since this server has no ring to place anything on.
func logFingerprint(origin gossip.OriginID, seq gossip.SeqNum, text string) {
	h := murmur3.Sum32([]byte(text))
	log.Printf("introspect: served origin=%d seq=%d fingerprint=%08x", origin, seq, h)
}
