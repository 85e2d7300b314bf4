package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"scriptforge/internal/archive"
	"scriptforge/internal/compiler"
	"scriptforge/internal/flowsource"
	"scriptforge/internal/persist"
	"scriptforge/internal/preview"
)

// Deps are the collaborators behind the routes. Writer, Archive and Refiner
// are optional; their routes answer 503 when unset.
type Deps struct {
	Compiler *compiler.Compiler
	Source   flowsource.Source
	Writer   *persist.Writer
	Archive  archive.Store
	Refiner  preview.Refiner
	Logger   logrus.FieldLogger
}

// NewMux registers every route.
func NewMux(d Deps) http.Handler {
	h := &handler{deps: d}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /v1/compile", h.compile)
	mux.HandleFunc("POST /v1/persist", h.persist)
	mux.HandleFunc("GET /v1/preview", h.preview)
	mux.HandleFunc("POST /v1/preview/refine", h.refine)
	mux.HandleFunc("GET /v1/compile/stream", h.stream)
	mux.HandleFunc("GET /v1/archive/{run}", h.listArchive)
	mux.HandleFunc("GET /v1/archive/{run}/{path...}", h.getArchive)
	return accessLog(d.Logger, cors(mux))
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack passes through to the underlying writer for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("server: response writer cannot be hijacked")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func accessLog(logger logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("request")
	})
}
