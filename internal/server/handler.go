package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TaskStatus 单个任务的进度
type TaskStatus struct {
	ID      string `json:"id"`
	Account string `json:"account"`
	Profile string `json:"profile"`
	State   string `json:"state"`
	Outcome string `json:"outcome"`
	Done    bool   `json:"done"`
}

// Status 任务池进度快照
type Status struct {
	CompletedFraction float64      `json:"completed_fraction"`
	Tasks             []TaskStatus `json:"tasks"`
}

// StatusFunc 每次请求时调用，返回当前快照
type StatusFunc func() Status

// NewHandler 组装只读路由：/metrics、/healthz、/status 与 /status/{taskID}。
// gatherer 为 nil 时使用默认 registry。
func NewHandler(gatherer prometheus.Gatherer, status StatusFunc) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	snapshot := func() Status {
		s := Status{CompletedFraction: 1}
		if status != nil {
			s = status()
		}
		if s.Tasks == nil {
			s.Tasks = []TaskStatus{}
		}
		return s
	}

	router := chi.NewRouter()
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	router.Get("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, snapshot())
	})
	router.Get("/status/{taskID}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "taskID")
		for _, t := range snapshot().Tasks {
			if t.ID == id {
				writeJSON(w, http.StatusOK, t)
				return
			}
		}
		http.NotFound(w, r)
	})
	return router
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
