package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"resonant/internal/runner"
	"resonant/internal/scheduler"
	"resonant/internal/signal"
)

// Api exposes the runner's state over HTTP for inspection and submission.
// The cooperative core itself has no network surface; this is embedder glue.
type Api struct {
	Address string
	Port    int
	Runner  *runner.Runner
	Router  *chi.Mux
}

type ErrResponse struct {
	HTTPStatusCode int    `json:"http_status_code"`
	Message        string `json:"message"`
}

type componentRequest struct {
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase"`
}

type submitTaskRequest struct {
	Priority   string             `json:"priority"`
	Components []componentRequest `json:"components"`
	TimeoutMs  int64              `json:"timeout_ms"`
}

func (a *Api) initRouter() {
	a.Router = chi.NewRouter()
	a.Router.Route("/tasks", func(r chi.Router) {
		r.Post("/", a.SubmitTaskHandler)
		r.Get("/", a.GetTasksHandler)
	})
	a.Router.Route("/events", func(r chi.Router) {
		r.Get("/", a.GetEventsHandler)
	})
	a.Router.Route("/timers", func(r chi.Router) {
		r.Get("/", a.GetTimersHandler)
	})
	a.Router.Route("/stats", func(r chi.Router) {
		r.Get("/", a.GetStatsHandler)
	})
	a.Router.Get("/healthz", a.HealthHandler)
}

func (a *Api) Start() error {
	a.initRouter()
	return http.ListenAndServe(fmt.Sprintf("%s:%d", a.Address, a.Port), a.Router)
}

// Handler returns the initialized router; used by tests and embedders that
// manage their own server.
func (a *Api) Handler() http.Handler {
	if a.Router == nil {
		a.initRouter()
	}
	return a.Router
}

func (a *Api) SubmitTaskHandler(w http.ResponseWriter, r *http.Request) {
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()

	req := submitTaskRequest{}
	if err := d.Decode(&req); err != nil {
		msg := fmt.Sprintf("error unmarshalling body: %v", err)
		slog.Error(msg)
		writeJSON(w, http.StatusBadRequest, ErrResponse{
			HTTPStatusCode: http.StatusBadRequest,
			Message:        msg,
		})
		return
	}

	components := make([]signal.Component, 0, len(req.Components))
	for _, c := range req.Components {
		components = append(components, signal.Component{
			Frequency: c.Frequency,
			Amplitude: c.Amplitude,
			Phase:     c.Phase,
		})
	}

	a.Runner.Submit(runner.Submission{
		Priority:   scheduler.ParsePriority(req.Priority),
		Components: components,
		Timeout:    time.Duration(req.TimeoutMs) * time.Millisecond,
	})
	w.WriteHeader(http.StatusCreated)
}

func (a *Api) GetTasksHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Runner.TaskSnapshot())
}

func (a *Api) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Runner.GetEvents())
}

func (a *Api) GetTimersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Runner.TimerSnapshot())
}

func (a *Api) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Runner.StatsSnapshot())
}

func (a *Api) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}
