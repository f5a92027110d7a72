package dartconnect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
)

func testClient(serverURL string, maxRetries int) *Client {
	return NewClient(ClientConfig{
		APIBaseURL:        serverURL,
		RecapBaseURL:      serverURL,
		MaxRetries:        maxRetries,
		RequestsPerSecond: 1000,
		Logger:            logging.NewNop(),
	})
}

func TestListEventMatches_ExtractsRefAndDeduplicates(t *testing.T) {
	t.Parallel()

	var gotPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotPath.Store(r.URL.Path)
		fmt.Fprint(w, `{"payload":{"matches":[
			{"id":"a"},
			{"id":"ignored","mi":"b"},
			{"id":"a"},
			{"id":""}
		]}}`)
	}))
	defer server.Close()

	client := testClient(server.URL, 0)
	ids, err := client.ListEventMatches(context.Background(), "https://tv.dartconnect.com/event/spring01/results")
	if err != nil {
		t.Fatalf("ListEventMatches error: %v", err)
	}
	if gotPath.Load() != "/api2/event/spring01/matches" {
		t.Fatalf("path = %v, want event ref extracted from the URL", gotPath.Load())
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ids = %v, want [a b]", ids)
	}
}

func TestListEventMatches_AcceptsBareEventID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api2/event/spring01/matches" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"payload":{"matches":[{"id":"m1"}]}}`)
	}))
	defer server.Close()

	ids, err := testClient(server.URL, 0).ListEventMatches(context.Background(), "spring01")
	if err != nil {
		t.Fatalf("ListEventMatches error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "m1" {
		t.Fatalf("ids = %v, want [m1]", ids)
	}
}

func TestListEventMatches_EmptyRefIsPermanent(t *testing.T) {
	t.Parallel()

	_, err := testClient("http://127.0.0.1:0", 0).ListEventMatches(context.Background(), "   ")
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("error = %v, want ErrPermanent", err)
	}
}

func TestFetchMatchDocument_FetchesBothPages(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/players/m1":
			fmt.Fprint(w, "players-html")
		case "/counts/m1":
			fmt.Fprint(w, "counts-html")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	doc, err := testClient(server.URL, 0).FetchMatchDocument(context.Background(), "m1")
	if err != nil {
		t.Fatalf("FetchMatchDocument error: %v", err)
	}
	if doc.MatchID != "m1" || string(doc.Body) != "players-html" || string(doc.CountsBody) != "counts-html" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestFetchMatchDocument_CountsFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/players/m1" {
			fmt.Fprint(w, "players-html")
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	doc, err := testClient(server.URL, 0).FetchMatchDocument(context.Background(), "m1")
	if err != nil {
		t.Fatalf("FetchMatchDocument error: %v", err)
	}
	if string(doc.Body) != "players-html" {
		t.Fatalf("body = %q", doc.Body)
	}
	if doc.CountsBody != nil {
		t.Fatal("counts body must degrade to nil when the counts page fails")
	}
}

func TestFetchMatchDocument_PlayersPageFailureIsFatal(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/counts/m1" {
			fmt.Fprint(w, "counts-html")
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := testClient(server.URL, 0).FetchMatchDocument(context.Background(), "m1")
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("error = %v, want ErrPermanent", err)
	}
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"payload":{"matches":[{"id":"m1"}]}}`)
	}))
	defer server.Close()

	ids, err := testClient(server.URL, 1).ListEventMatches(context.Background(), "spring01")
	if err != nil {
		t.Fatalf("ListEventMatches error: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("ids = %v, want one match after retry", ids)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestClient_TransientAfterRetryBudget(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testClient(server.URL, 1).ListEventMatches(context.Background(), "spring01")
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("error = %v, want ErrTransient", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want retry budget exhausted", calls.Load())
	}
}

func TestClient_PermanentStatusDoesNotRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL, 3).ListEventMatches(context.Background(), "spring01")
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("error = %v, want ErrPermanent", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want no retries on permanent status", calls.Load())
	}
}
