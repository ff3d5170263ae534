package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trungvh/gazette/internal/models"
	"github.com/trungvh/gazette/internal/pipeline"
)

func TestGetStatus(t *testing.T) {
	store := newTestStore(t)
	p := newTestPipeline(t, store)

	r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()

	GetStatus(p)(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}

	var body pipeline.Status
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if body.Stage != pipeline.StageIdle {
		t.Errorf("stage = %q, want %q", body.Stage, pipeline.StageIdle)
	}
	if body.Running {
		t.Error("fresh pipeline should not be running")
	}
}

func TestRefresh_StartsCycle(t *testing.T) {
	store := newTestStore(t)
	p := newTestPipeline(t, store)

	r := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	w := httptest.NewRecorder()

	Refresh(p)(w, r)

	if w.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusAccepted)
	}

	// With no sources configured the cycle settles quickly.
	deadline := time.Now().Add(10 * time.Second)
	for p.Status().CyclesDone == 0 {
		if time.Now().After(deadline) {
			t.Fatal("cycle never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRefresh_ConflictWhileRunning(t *testing.T) {
	store := newTestStore(t)

	// A source that stalls until released keeps the first cycle running.
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	p := newTestPipeline(t, store, models.Source{
		Name:     "slow",
		Endpoint: srv.URL,
		Kind:     models.KindFeed,
		Category: "news",
		Priority: 1,
	})

	first := httptest.NewRecorder()
	Refresh(p)(first, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first refresh: got status %d, want %d", first.Code, http.StatusAccepted)
	}

	// Wait until the background cycle actually holds the pipeline.
	deadline := time.Now().Add(10 * time.Second)
	for !p.Status().Running {
		if time.Now().After(deadline) {
			t.Fatal("first cycle never started")
		}
		time.Sleep(10 * time.Millisecond)
	}

	second := httptest.NewRecorder()
	Refresh(p)(second, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if second.Code != http.StatusConflict {
		t.Fatalf("second refresh: got status %d, want %d", second.Code, http.StatusConflict)
	}

	// Release the stalled source and let the cycle drain before teardown.
	close(release)
	for p.Status().Running {
		if time.Now().After(deadline) {
			t.Fatal("first cycle never finished")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
