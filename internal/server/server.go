// Package server exposes the tileset catalog over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/retroblast-engine/tsxset/internal/store"
)

// Server serves catalog lookups and the live event socket.
type Server struct {
	storage store.Storage
	events  http.Handler
	server  *http.Server
}

// New creates a server. events handles /ws and may be nil.
func New(storage store.Storage, events http.Handler) *Server {
	return &Server{
		storage: storage,
		events:  events,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /tilesets", s.handleList)
	mux.HandleFunc("GET /tilesets/{name}", s.handleTileset)
	mux.HandleFunc("GET /tilesets/{name}/tiles/{id}", s.handleTile)
	if s.events != nil {
		mux.Handle("GET /ws", s.events)
	}

	return mux
}

// Start listens on addr in the background.
func (s *Server) Start(addr string) {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()
}

// Stop closes the listener and every open connection.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.storage.ListTilesets()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tilesets": names,
		"count":    len(names),
	})
}

func (s *Server) handleTileset(w http.ResponseWriter, r *http.Request) {
	m, err := s.storage.LoadTileset(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tile id must be a non-negative integer"})
		return
	}

	m, err := s.storage.LoadTileset(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	rec, ok := m.Lookup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "tile " + strconv.Itoa(id) + " not found in " + m.Name})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	log.Printf("Catalog error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
