package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
	"github.com/dowdarts/aadsstatsscrapper/internal/extract"
	"github.com/dowdarts/aadsstatsscrapper/internal/infrastructure/repository/memory"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
	"github.com/dowdarts/aadsstatsscrapper/internal/usecase"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := memory.NewStandingsStore(standings.SeriesInfo{
		Name:              "Test Series",
		TotalEvents:       7,
		QualifyingFrom:    1,
		QualifyingThrough: 6,
		ChampionshipEvent: 7,
	})
	chain := extract.NewChain(logging.NewNop())
	ingestion := usecase.NewIngestionService(nil, chain, store, nil, nil, logging.NewNop())
	standingsSvc := usecase.NewStandingsService(store, nil, nil, logging.NewNop())

	handler := NewHandler(ingestion, standingsSvc, nil, logging.NewNop())
	return NewRouter(handler, logging.NewNop(), []string{"*"})
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope googleResponseEnvelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error == nil || len(envelope.Error.Errors) == 0 {
		t.Fatalf("no error body in response: %s", rec.Body.String())
	}
	return envelope.Error.Errors[0].Reason
}

const aliceRecordBody = `{
	"player_name": "Alice Smith",
	"match_id": "m1",
	"event_id": 1,
	"three_dart_avg": 54.55,
	"legs_played": 2,
	"legs_won": 2,
	"highest_checkout": 121
}`

func TestHandler_Healthz(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
}

func TestHandler_MergeAndReadFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/records", aliceRecordBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("merge code = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/records", aliceRecordBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate code = %d, want 409", rec.Code)
	}
	if reason := errorReason(t, rec); reason != "duplicateRecord" {
		t.Fatalf("reason = %q, want duplicateRecord", reason)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/leaderboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard code = %d", rec.Code)
	}
	var leaderboard struct {
		Data []standings.RankedPlayer `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &leaderboard); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(leaderboard.Data) != 1 || leaderboard.Data[0].Name != "Alice Smith" || leaderboard.Data[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard: %+v", leaderboard.Data)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/players/Alice%20Smith", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("player code = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/players/Nobody%20Here", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown player code = %d, want 404", rec.Code)
	}
}

func TestHandler_MergeRecordValidation(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/records", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body code = %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/records",
		`{"player_name":"Alice","match_id":"m1","event_id":1,"three_dart_avg":54.55,"legs_played":2,"bogus_field":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field code = %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/records",
		`{"player_name":"","match_id":"m1","event_id":1,"three_dart_avg":54.55,"legs_played":2}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing name code = %d, want 400", rec.Code)
	}
}

func TestHandler_EventWinnerAndQualified(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	if rec := doRequest(t, router, http.MethodPost, "/v1/records", aliceRecordBody); rec.Code != http.StatusCreated {
		t.Fatalf("seed merge code = %d", rec.Code)
	}

	rec := doRequest(t, router, http.MethodPost, "/v1/events/1/winner", `{"player_name":"Alice Smith"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("winner code = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/events/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("event code = %d", rec.Code)
	}
	var event struct {
		Data standings.Event `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if !event.Data.Completed || event.Data.Winner == nil || *event.Data.Winner != "Alice Smith" {
		t.Fatalf("unexpected event: %+v", event.Data)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/qualified", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("qualified code = %d", rec.Code)
	}
	var qualified struct {
		Data []standings.Player `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &qualified); err != nil {
		t.Fatalf("decode qualified: %v", err)
	}
	if len(qualified.Data) != 1 || qualified.Data[0].Name != "Alice Smith" {
		t.Fatalf("unexpected qualified players: %+v", qualified.Data)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/events/1/winner", `{"player_name":"Nobody Here"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown winner code = %d, want 404", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/events/abc/winner", `{"player_name":"Alice Smith"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad event id code = %d, want 400", rec.Code)
	}
}

func TestHandler_ResetRequiresConfirmation(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	if rec := doRequest(t, router, http.MethodPost, "/v1/records", aliceRecordBody); rec.Code != http.StatusCreated {
		t.Fatalf("seed merge code = %d", rec.Code)
	}

	rec := doRequest(t, router, http.MethodPost, "/v1/admin/reset", `{"confirm":false}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed code = %d, want 400", rec.Code)
	}
	if reason := errorReason(t, rec); reason != "confirmationRequired" {
		t.Fatalf("reason = %q, want confirmationRequired", reason)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/admin/reset", `{"confirm":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirmed code = %d, want 200", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/players/Alice%20Smith", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("player survived reset, code = %d", rec.Code)
	}
}

func TestHandler_LeaderboardRejectsUnknownSortKey(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/v1/leaderboard?sort_by=nope", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}
