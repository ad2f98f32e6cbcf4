package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"resonant/internal/runner"
	"resonant/internal/scheduler"
)

func newTestApi(t *testing.T) *Api {
	t.Helper()
	r, err := runner.New("test-api", "memory")
	if err != nil {
		t.Fatalf("runner.New() error: %v", err)
	}
	return &Api{Runner: r}
}

func TestHealthHandler(t *testing.T) {
	a := newTestApi(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz = %d; want 200", resp.StatusCode)
	}
}

func TestSubmitAndListTasks(t *testing.T) {
	a := newTestApi(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	body := []byte(`{"priority": "top", "components": [{"frequency": 2.0, "amplitude": 0.5, "phase": 0.0}]}`)
	resp, err := http.Post(srv.URL+"/tasks", "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /tasks = %d; want 201", resp.StatusCode)
	}

	// Submissions enter the pool on the next loop cycle.
	a.Runner.ProcessSubmissions()

	resp, err = http.Get(srv.URL + "/tasks")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var tasks []scheduler.TaskInfo
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("listed %d tasks; want 1", len(tasks))
	}
	if tasks[0].Priority != "top" || tasks[0].Components != 1 {
		t.Errorf("unexpected task view: %+v", tasks[0])
	}
}

func TestSubmitTaskBadBody(t *testing.T) {
	a := newTestApi(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/tasks", "application/json", bytes.NewBufferString(`{"priority": 3}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST /tasks with bad body = %d; want 400", resp.StatusCode)
	}
}

func TestGetEventsAndTimers(t *testing.T) {
	a := newTestApi(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	a.Runner.Submit(runner.Submission{Priority: scheduler.Low, Work: func() error { return nil }})
	a.Runner.ProcessSubmissions()
	a.Runner.Step()

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var events []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Errorf("listed %d events; want 3 (scheduled, dispatched, completed)", len(events))
	}

	resp, err = http.Get(srv.URL + "/timers")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /timers = %d; want 200", resp.StatusCode)
	}
}
