// Package server implements the blocksync HTTP surface: info, hashes,
// blocks (GET/POST) and resize, exactly as specified in spec.md §4.7.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blocksync/blocksync/internal/blockio"
	"github.com/blocksync/blocksync/internal/config"
	"github.com/blocksync/blocksync/internal/hashmap"
)

// Server serves the blocksync HTTP endpoints. Concurrency is the hashing
// fan-out used for a /hashes request that carries no concurrency query
// parameter; a request that carries one uses its value instead. It is
// separate from net/http's own per-connection goroutine concurrency.
type Server struct {
	Concurrency int
	Logger      *zap.SugaredLogger

	mux *http.ServeMux
}

// New builds a Server ready to be used as an http.Handler.
func New(concurrency int, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{Concurrency: concurrency, Logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/hashes", s.handleHashes)
	mux.HandleFunc("/blocks", s.handleBlocks)
	mux.HandleFunc("/resize", s.handleResize)
	s.mux = mux
	return s
}

// ServeHTTP makes Server an http.Handler; every request is stamped with a
// correlation ID and logged at debug level before being dispatched.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	s.Logger.Debugw("request received", "id", id, "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
	s.mux.ServeHTTP(w, r)
}

// NewHTTPServer wraps a Server in an *http.Server with timeouts disabled,
// per spec.md §4.7: hashing and block transfers over large files can exceed
// typical HTTP timeouts.
func NewHTTPServer(addr string, concurrency int, logger *zap.SugaredLogger) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      New(concurrency, logger),
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  0,
	}
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	size, ok, err := blockio.Size(filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{"size": size})
}

func (s *Server) handleHashes(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	blockSize := config.DefaultBlockSize
	if v := r.URL.Query().Get("block_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			blockSize = n
		}
	}
	concurrency := s.Concurrency
	if v := r.URL.Query().Get("concurrency"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			concurrency = n
		}
	}
	method := r.URL.Query().Get("method")

	hashes, err := hashmap.Build(r.Context(), filename, blockSize, method, concurrency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	for offset, digest := range hashes {
		fmt.Fprintf(w, "%d\t%s\n", offset, digest)
		if canFlush {
			flusher.Flush()
		}
	}
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	offset, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)
	if err != nil {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		size, err := strconv.Atoi(r.URL.Query().Get("size"))
		if err != nil {
			http.Error(w, "invalid size", http.StatusBadRequest)
			return
		}
		data, err := blockio.Read(filename, offset, size)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	case http.MethodPost:
		defer r.Body.Close()
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := blockio.Write(filename, offset, data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	filename := r.URL.Query().Get("filename")
	size, err := strconv.ParseInt(r.URL.Query().Get("size"), 10, 64)
	if err != nil {
		http.Error(w, "invalid size", http.StatusBadRequest)
		return
	}
	if err := blockio.Resize(filename, size); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
