package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rahul/slotwatch/internal/observability"
	"github.com/rahul/slotwatch/internal/store"
)

type fakeRuns struct {
	runs     []store.Run
	err      error
	gotLimit int
}

func (f *fakeRuns) Recent(_ context.Context, limit int) ([]store.Run, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(NewRouter(observability.NewStatus(), nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStatus(t *testing.T) {
	st := observability.NewStatus()
	st.BeginRun("run-1")
	st.SetState(2, "ChallengeSolved")

	ts := httptest.NewServer(NewRouter(st, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp.Body.Close()

	var snap observability.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Phase != observability.PhaseChecking || snap.RunID != "run-1" || snap.Attempt != 2 || snap.State != "ChallengeSolved" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestRuns(t *testing.T) {
	now := time.Now().UTC()
	runs := &fakeRuns{runs: []store.Run{
		{ID: "run-2", StartedAt: now, FinishedAt: now, Attempts: 1, Status: store.StatusNoSlots},
		{ID: "run-1", StartedAt: now.Add(-time.Hour), FinishedAt: now.Add(-time.Hour), Attempts: 3, Status: store.StatusExhausted},
	}}
	ts := httptest.NewServer(NewRouter(observability.NewStatus(), runs))
	defer ts.Close()

	cases := []struct {
		Label     string
		Query     string
		WantCode  int
		WantCount int
		WantLimit int
	}{
		{Label: "default limit", Query: "", WantCode: http.StatusOK, WantCount: 2, WantLimit: store.DefaultRecentLimit},
		{Label: "explicit limit", Query: "?limit=1", WantCode: http.StatusOK, WantCount: 1, WantLimit: 1},
		{Label: "bad limit", Query: "?limit=zero", WantCode: http.StatusBadRequest},
		{Label: "negative limit", Query: "?limit=-3", WantCode: http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.Label, func(t *testing.T) {
			runs.gotLimit = 0
			resp, err := http.Get(ts.URL + "/runs" + c.Query)
			if err != nil {
				t.Fatalf("GET /runs failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != c.WantCode {
				t.Fatalf("expected %d, got %d", c.WantCode, resp.StatusCode)
			}
			if c.WantCode != http.StatusOK {
				return
			}
			var got []store.Run
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != c.WantCount || runs.gotLimit != c.WantLimit {
				t.Fatalf("got %d runs with limit %d", len(got), runs.gotLimit)
			}
		})
	}
}

func TestRunsErrors(t *testing.T) {
	cases := []struct {
		Label    string
		Runs     RunLister
		WantCode int
	}{
		{Label: "history disabled", Runs: nil, WantCode: http.StatusNotFound},
		{Label: "store failure", Runs: &fakeRuns{err: errors.New("disk full")}, WantCode: http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.Label, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewRouter(observability.NewStatus(), c.Runs).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
			if rec.Code != c.WantCode {
				t.Fatalf("expected %d, got %d", c.WantCode, rec.Code)
			}
		})
	}
}
