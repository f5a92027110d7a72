package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
	"github.com/dowdarts/aadsstatsscrapper/internal/usecase"
)

type Handler struct {
	ingestionService *usecase.IngestionService
	standingsService *usecase.StandingsService
	jobOrchestrator  *usecase.JobOrchestratorService
	logger           *logging.Logger
	validator        *validator.Validate
}

func NewHandler(
	ingestionService *usecase.IngestionService,
	standingsService *usecase.StandingsService,
	jobOrchestrator *usecase.JobOrchestratorService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		ingestionService: ingestionService,
		standingsService: standingsService,
		jobOrchestrator:  jobOrchestrator,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(payload any) error {
	if err := h.validator.Struct(payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func decodeBody(r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func pathEventID(r *http.Request) (int, error) {
	raw := r.PathValue("eventID")
	eventID, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || eventID <= 0 {
		return 0, fmt.Errorf("%w: event id %q must be a positive integer", usecase.ErrInvalidInput, raw)
	}
	return eventID, nil
}

type ingestEventRequest struct {
	EventRef string `json:"event_ref" validate:"required"`
}

type extractMatchRequest struct {
	EventID int `json:"event_id" validate:"required,gt=0"`
}

type matchRecordRequest struct {
	PlayerName            string   `json:"player_name" validate:"required"`
	MatchID               string   `json:"match_id" validate:"required"`
	EventID               int      `json:"event_id" validate:"required,gt=0"`
	ThreeDartAvg          float64  `json:"three_dart_avg" validate:"required,gt=0"`
	LegsPlayed            int      `json:"legs_played" validate:"required,gt=0"`
	LegsWon               int      `json:"legs_won" validate:"gte=0"`
	FirstNineAvg          *float64 `json:"first_9_avg"`
	Count100Plus          *int     `json:"hundreds_plus"`
	Count140Plus          *int     `json:"one_forty_plus"`
	Count180              *int     `json:"one_eighties"`
	HighestScore          *int     `json:"highest_score"`
	CheckoutOpportunities *int     `json:"checkout_opportunities"`
	CheckoutHits          *int     `json:"checkout_hits"`
	CheckoutPct           *float64 `json:"checkout_pct"`
	HighestCheckout       *int     `json:"highest_checkout"`
}

func (req matchRecordRequest) toDomain() match.PlayerMatchRecord {
	return match.PlayerMatchRecord{
		PlayerName:            req.PlayerName,
		MatchID:               req.MatchID,
		EventID:               req.EventID,
		ThreeDartAvg:          req.ThreeDartAvg,
		LegsPlayed:            req.LegsPlayed,
		LegsWon:               req.LegsWon,
		FirstNineAvg:          req.FirstNineAvg,
		Count100Plus:          req.Count100Plus,
		Count140Plus:          req.Count140Plus,
		Count180:              req.Count180,
		HighestScore:          req.HighestScore,
		CheckoutOpportunities: req.CheckoutOpportunities,
		CheckoutHits:          req.CheckoutHits,
		CheckoutPct:           req.CheckoutPct,
		HighestCheckout:       req.HighestCheckout,
		Source:                "manual",
	}
}

type eventWinnerRequest struct {
	PlayerName string `json:"player_name" validate:"required"`
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathEventID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req ingestEventRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	job, err := h.jobOrchestrator.StartEventIngestion(r.Context(), req.EventRef, eventID)
	if err != nil {
		h.logger.Warn("start event ingestion failed", "event_id", eventID, "error", err)
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusAccepted, job)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")
	job, err := h.jobOrchestrator.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, job)
}

func (h *Handler) ExtractMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("matchID")

	var req extractMatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	records, err := h.ingestionService.ExtractMatch(r.Context(), matchID, req.EventID)
	if err != nil {
		h.logger.Warn("extract match failed", "match_id", matchID, "event_id", req.EventID, "error", err)
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, records)
}

func (h *Handler) MergeRecord(w http.ResponseWriter, r *http.Request) {
	var req matchRecordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.ingestionService.MergeRecord(r.Context(), req.toDomain()); err != nil {
		h.logger.Warn("merge record failed",
			"player", req.PlayerName,
			"match_id", req.MatchID,
			"event_id", req.EventID,
			"error", err,
		)
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]string{"status": "merged"})
}

func (h *Handler) SetEventWinner(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathEventID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req eventWinnerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.standingsService.SetEventWinner(r.Context(), eventID, req.PlayerName); err != nil {
		h.logger.Warn("set event winner failed", "event_id", eventID, "player", req.PlayerName, "error", err)
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"event_id": eventID, "winner": req.PlayerName})
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	key := standings.SortKey(strings.TrimSpace(r.URL.Query().Get("sort_by")))

	rows, err := h.standingsService.Leaderboard(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, rows)
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	player, err := h.standingsService.PlayerStats(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, player)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathEventID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	event, err := h.standingsService.EventDetails(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, event)
}

func (h *Handler) GetQualifiedPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.standingsService.QualifiedPlayers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, players)
}

func (h *Handler) ResetStandings(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.standingsService.Reset(r.Context(), req.Confirm); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"status": "reset"})
}
