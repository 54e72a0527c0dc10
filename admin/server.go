// Package admin exposes a small HTTP surface alongside the frontend's
// length-prefixed protocol: liveness, Prometheus metrics, and a read-only
// JSON view of the current topology — the same information a TOPOLOGY
// command returns, reachable without holding a worker.
package admin

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/chivay/ursadb/broker"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the admin HTTP surface; it reads Coordinator state but never
// dispatches work to a Worker, so it has no effect on pool occupancy.
type Server struct {
	coord *broker.Coordinator
}

func New(coord *broker.Coordinator) *Server {
	return &Server{coord: coord}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthz).Methods("GET")
	r.HandleFunc("/stats", s.stats).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// ListenAndServe blocks serving the admin surface on addr.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("admin server listening on %v", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type indexEntry struct {
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type datasetEntry struct {
	ID       string       `json:"id"`
	Size     int64        `json:"size"`
	NumFiles int          `json:"num_files"`
	Taints   []string     `json:"taints"`
	Indexes  []indexEntry `json:"indexes"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	snap := s.coord.Snapshot()

	datasets := make([]datasetEntry, len(snap.Datasets))
	for i, ds := range snap.Datasets {
		taints := make([]string, 0, len(ds.Taints))
		for t := range ds.Taints {
			taints = append(taints, t)
		}
		indexes := make([]indexEntry, len(ds.Indexes))
		for j, idx := range ds.Indexes {
			indexes[j] = indexEntry{Type: idx.Type, Size: idx.Size}
		}
		datasets[i] = datasetEntry{ID: ds.ID, Size: ds.Size(), NumFiles: ds.NumFiles, Taints: taints, Indexes: indexes}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": datasets,
		"tasks":    snap.DatabaseTasks(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "JSON serialization error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
