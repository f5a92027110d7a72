package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerIngestionRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/events/{eventID}/ingest", handler.IngestEvent)
	mux.HandleFunc("GET /v1/jobs/{jobID}", handler.GetJob)
	mux.HandleFunc("POST /v1/matches/{matchID}/extract", handler.ExtractMatch)
	mux.HandleFunc("POST /v1/records", handler.MergeRecord)
}

func registerStandingsRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/leaderboard", handler.GetLeaderboard)
	mux.HandleFunc("GET /v1/players/{name}", handler.GetPlayer)
	mux.HandleFunc("GET /v1/events/{eventID}", handler.GetEvent)
	mux.HandleFunc("GET /v1/qualified", handler.GetQualifiedPlayers)
	mux.HandleFunc("POST /v1/events/{eventID}/winner", handler.SetEventWinner)
	mux.HandleFunc("POST /v1/admin/reset", handler.ResetStandings)
}
