package scores_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"scoredeck/services/scoreboard"
	"scoredeck/services/scores"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *scores.Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := scoreboard.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return scores.NewStore(client, 20)
}

func TestSetCriteriaResetsPage(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {})

	store.SetPage(4)
	if store.Page() != 4 {
		t.Fatalf("expected page 4, got %d", store.Page())
	}

	store.SetCriteria(scores.Criteria{Level: "12"})
	if store.Page() != 0 {
		t.Fatalf("expected filter change to reset page to 0, got %d", store.Page())
	}

	// Re-applying identical criteria still invalidates the cursor.
	store.SetPage(2)
	store.SetCriteria(scores.Criteria{Level: "12"})
	if store.Page() != 0 {
		t.Fatalf("expected page 0 after SetCriteria, got %d", store.Page())
	}
}

func TestRefreshCommitsPage(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("level"); got != "12" {
			t.Errorf("expected level=12 in query, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content":[{"id":1,"song":{"title":"V","artist":"TAKA"},"chart":{"playStyle":"SP","level":12,"chartType":"ANOTHER"},"bestClearType":"HARD_CLEAR","bestDjLevel":"AA","bestScore":3000,"playCount":17}],
			"totalElements":41,"totalPages":3,"number":0,"size":20}`))
	})

	store.SetCriteria(scores.Criteria{Level: "12"})
	snap := store.Refresh(context.Background())

	if snap.Loading {
		t.Fatalf("expected loading cleared after refresh")
	}
	if snap.Err != "" {
		t.Fatalf("unexpected error %q", snap.Err)
	}
	if len(snap.Items) != 1 || snap.Items[0].Song.Title != "V" {
		t.Fatalf("unexpected items %+v", snap.Items)
	}
	if snap.TotalElements != 41 || snap.TotalPages != 3 || snap.Page != 0 {
		t.Fatalf("unexpected envelope fields: %+v", snap)
	}
}

func TestRefreshErrorSurfacesBackendMessage(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"X"}`))
	})

	snap := store.Refresh(context.Background())

	if snap.Err != "X" {
		t.Fatalf("expected backend message %q, got %q", "X", snap.Err)
	}
	if snap.Loading {
		t.Fatalf("expected loading cleared on error")
	}
}

func TestStaleResponseNeverOverwritesNewer(t *testing.T) {
	var calls atomic.Int64
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
		}
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			w.Write([]byte(`{"content":[],"totalElements":1,"totalPages":1,"number":0,"size":20}`))
			return
		}
		w.Write([]byte(`{"content":[],"totalElements":2,"totalPages":1,"number":0,"size":20}`))
	})

	staleDone := make(chan struct{})
	go func() {
		defer close(staleDone)
		store.Refresh(context.Background())
	}()
	<-firstStarted

	// A second fetch is issued while the first is still in flight; it wins.
	snap := store.Refresh(context.Background())
	if snap.TotalElements != 2 {
		t.Fatalf("expected newer response committed, got %+v", snap)
	}

	close(releaseFirst)
	<-staleDone

	if got := store.Snapshot().TotalElements; got != 2 {
		t.Fatalf("stale response overwrote newer state: totalElements=%d", got)
	}
	if store.Snapshot().Loading {
		t.Fatalf("expected loading cleared once the latest request settled")
	}
}
