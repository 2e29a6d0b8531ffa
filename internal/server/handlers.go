// SPDX-License-Identifier: MPL-2.0

package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/graphweave/graphweave/internal/resolve"
)

// GenerationHeader carries the registry generation a response was built from.
const GenerationHeader = "X-Graphweave-Generation"

type (
	cacheKey struct {
		generation uint64
		selectors  string
	}

	rendered struct {
		body  []byte
		names []string
	}

	errorResponse struct {
		Error   string   `json:"error"`
		Missing []string `json:"missing,omitempty"`
		Cycle   []string `json:"cycle,omitempty"`
	}

	partialInfo struct {
		Name     string   `json:"name"`
		Key      string   `json:"key"`
		Sections []string `json:"sections"`
		Requires []string `json:"requires"`
	}

	statusRecorder struct {
		http.ResponseWriter
		status int
		bytes  int
	}
)

// Handler returns the HTTP routes. It is usable without Start, e.g. with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/schema", s.handleSchema)
	mux.HandleFunc("/partials", s.handlePartials)
	mux.HandleFunc("/health", s.handleHealth)
	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	selectors := selectorsFrom(r)
	if len(selectors) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no partials selected: use ?partial=<name> or ?partials=a,b"})
		return
	}

	snap := s.source.Snapshot()
	key := cacheKey{generation: snap.Generation(), selectors: strings.Join(selectors, "\x00")}
	if s.cache != nil {
		if hit, ok := s.cache.Get(key); ok {
			s.writeSchema(w, snap.Generation(), hit)
			return
		}
	}

	var buf bytes.Buffer
	report, err := s.svc.AggregateFrom(r.Context(), snap, &buf, selectors...)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	out := &rendered{body: buf.Bytes(), names: report.Names}
	if s.cache != nil {
		s.cache.Add(key, out)
	}
	s.writeSchema(w, report.Generation, out)
}

func (s *Server) writeSchema(w http.ResponseWriter, generation uint64, out *rendered) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(GenerationHeader, strconv.FormatUint(generation, 10))
	w.Header().Set("X-Graphweave-Partials", strings.Join(out.names, ","))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.body)
}

func (s *Server) writeResolveError(w http.ResponseWriter, err error) {
	var (
		missingErr  *resolve.MissingPartialsError
		cycleErr    *resolve.RequirementsCycleError
		selectorErr *resolve.InvalidSelectorError
	)
	switch {
	case errors.As(err, &missingErr):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Missing: missingErr.Names})
	case errors.As(err, &cycleErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Cycle: cycleErr.Path})
	case errors.As(err, &selectorErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("Aggregation failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "aggregation failed"})
	}
}

func (s *Server) handlePartials(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	snap := s.source.Snapshot()
	infos := make([]partialInfo, 0, snap.Len())
	for _, p := range snap.Partials() {
		requires := p.RequiredNames()
		if requires == nil {
			requires = []string{}
		}
		infos = append(infos, partialInfo{
			Name:     p.Name(),
			Key:      p.Key(),
			Sections: p.SectionNames(),
			Requires: requires,
		})
	}
	w.Header().Set(GenerationHeader, strconv.FormatUint(snap.Generation(), 10))
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// selectorsFrom collects ?partial= values and comma-separated ?partials=
// lists in query order, dropping blanks.
func selectorsFrom(r *http.Request) []string {
	query := r.URL.Query()
	var out []string
	for _, v := range query["partial"] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	for _, list := range query["partials"] {
		for v := range strings.SplitSeq(list, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
