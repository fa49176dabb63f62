package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"tft-tracker/internal/config"
	"tft-tracker/internal/constants"
	"tft-tracker/internal/domain"
	"tft-tracker/internal/export"
	"tft-tracker/internal/metrics"
	"tft-tracker/internal/middleware"
	"tft-tracker/internal/service"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type TournamentAPI interface {
	CreateTournament(ctx context.Context, in service.CreateTournamentInput) (*domain.Tournament, error)
	RegisterParticipants(ctx context.Context, tournamentID string, participants []domain.Participant) ([]domain.Participant, error)
	GetTournament(ctx context.Context, id string) (*domain.Tournament, error)
	ListTournaments(ctx context.Context) ([]domain.Tournament, error)
	ListParticipants(ctx context.Context, tournamentID string) ([]domain.Participant, error)
}

type SubmissionAPI interface {
	SubmitGame(ctx context.Context, game domain.GameResult) (*service.SubmissionResult, error)
	CorrectGame(ctx context.Context, game domain.GameResult) (*service.SubmissionResult, error)
	DeleteGame(ctx context.Context, tournamentID string, day, game int) (*service.SubmissionResult, error)
}

type StandingsAPI interface {
	Recalculate(ctx context.Context, tournamentID string) (*service.RecalcResult, error)
	GetStandings(ctx context.Context, tournamentID string, limit int) (*domain.Snapshot, error)
	GetPlayerStanding(ctx context.Context, tournamentID, playerID string) (*domain.RankedStanding, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	tournaments TournamentAPI
	submissions SubmissionAPI
	standings   StandingsAPI
	db          Pinger
	metrics     *metrics.Metrics
	cfg         *config.Config
	logger      zerolog.Logger

	requestTimeout time.Duration
}

func NewHandler(
	tournaments TournamentAPI,
	submissions SubmissionAPI,
	standings StandingsAPI,
	db Pinger,
	m *metrics.Metrics,
	cfg *config.Config,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		tournaments: tournaments,
		submissions: submissions,
		standings:   standings,
		db:          db,
		metrics:     m,
		cfg:         cfg,
		logger:      logger,

		requestTimeout: constants.RequestTimeout,
	}
}

// Routes builds the HTTP API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID(h.logger))
	r.Use(chimiddleware.Timeout(h.requestTimeout))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: h.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}).Handler)

	submitLimiter := middleware.NewIPRateLimiter(rate.Limit(h.cfg.SubmitRateLimit), h.cfg.SubmitRateBurst)

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1/tournaments", func(r chi.Router) {
		r.Post("/", h.createTournament)
		r.Get("/", h.listTournaments)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", h.getTournament)
			r.Get("/participants", h.listParticipants)
			r.Post("/participants", h.registerParticipants)

			r.With(middleware.RateLimit(submitLimiter)).Post("/games", h.submitGame)
			r.Put("/days/{day}/games/{game}", h.correctGame)
			r.Delete("/days/{day}/games/{game}", h.deleteGame)

			r.Get("/standings", h.getStandings)
			r.Get("/standings.xlsx", h.exportStandings)
			r.Get("/standings/{playerID}", h.getPlayerStanding)
			r.Post("/recalculate", h.recalculate)
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("database ping failed")
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createTournament(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.tournaments.CreateTournament(r.Context(), service.CreateTournamentInput{
		ID:        req.ID,
		Name:      req.Name,
		LobbySize: req.LobbySize,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toTournamentResponse(t))
}

func (h *Handler) listTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournaments.ListTournaments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]tournamentResponse, len(tournaments))
	for i := range tournaments {
		resp[i] = toTournamentResponse(&tournaments[i])
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) getTournament(w http.ResponseWriter, r *http.Request) {
	t, err := h.tournaments.GetTournament(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTournamentResponse(t))
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.tournaments.ListParticipants(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toParticipantPayloads(participants))
}

func (h *Handler) registerParticipants(w http.ResponseWriter, r *http.Request) {
	var req registerParticipantsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := make([]domain.Participant, len(req.Participants))
	for i, p := range req.Participants {
		in[i] = domain.Participant{PlayerID: p.PlayerID, DisplayName: p.DisplayName}
	}

	participants, err := h.tournaments.RegisterParticipants(r.Context(), chi.URLParam(r, "tournamentID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toParticipantPayloads(participants))
}

func (h *Handler) submitGame(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.submissions.SubmitGame(r.Context(), req.toDomain(chi.URLParam(r, "tournamentID")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toSubmissionResponse(res))
}

func (h *Handler) correctGame(w http.ResponseWriter, r *http.Request) {
	day, game, ok := gamePath(w, r)
	if !ok {
		return
	}

	var req gameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Day, req.Game = day, game

	res, err := h.submissions.CorrectGame(r.Context(), req.toDomain(chi.URLParam(r, "tournamentID")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSubmissionResponse(res))
}

func (h *Handler) deleteGame(w http.ResponseWriter, r *http.Request) {
	day, game, ok := gamePath(w, r)
	if !ok {
		return
	}

	res, err := h.submissions.DeleteGame(r.Context(), chi.URLParam(r, "tournamentID"), day, game)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSubmissionResponse(res))
}

func (h *Handler) getStandings(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, &domain.ValidationError{Problems: []string{fmt.Sprintf("limit %q must be a positive integer", raw)}})
			return
		}
		limit = n
	}

	snap, err := h.standings.GetStandings(r.Context(), chi.URLParam(r, "tournamentID"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toStandingsResponse(snap))
}

func (h *Handler) getPlayerStanding(w http.ResponseWriter, r *http.Request) {
	s, err := h.standings.GetPlayerStanding(r.Context(), chi.URLParam(r, "tournamentID"), chi.URLParam(r, "playerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toStandingResponse(*s))
}

func (h *Handler) exportStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")

	t, err := h.tournaments.GetTournament(r.Context(), tournamentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.standings.GetStandings(r.Context(), tournamentID, constants.MaxStandingsLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	participants, err := h.tournaments.ListParticipants(r.Context(), tournamentID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	names := make(map[string]string, len(participants))
	for _, p := range participants {
		names[p.PlayerID] = p.DisplayName
	}

	var buf bytes.Buffer
	if err := export.WriteStandingsXLSX(&buf, snap, t.LobbySize, names); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-standings.xlsx"`, tournamentID))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to write export")
	}
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	res, err := h.standings.Recalculate(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, recalculateResponse{
		TournamentID:  res.TournamentID,
		SnapshotID:    res.SnapshotID,
		LedgerVersion: res.LedgerVersion,
		PlayerCount:   res.PlayerCount,
		Discarded:     res.Discarded,
	})
}

func gamePath(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	verr := &domain.ValidationError{}
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		verr.Add("day %q is not a number", chi.URLParam(r, "day"))
	}
	game, err := strconv.Atoi(chi.URLParam(r, "game"))
	if err != nil {
		verr.Add("game %q is not a number", chi.URLParam(r, "game"))
	}
	if err := verr.OrNil(); err != nil {
		writeError(w, r, err)
		return 0, 0, false
	}
	return day, game, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, &domain.ValidationError{Problems: []string{fmt.Sprintf("malformed request body: %v", err)}})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to encode response")
	}
}

// writeError maps domain errors onto status codes. Internal failures keep
// their message out of the response body unless they carry uncommitted facts.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{RequestID: middleware.GetRequestID(r.Context())}
	status := http.StatusInternalServerError

	var (
		verr      *domain.ValidationError
		nf        *domain.NotFoundError
		commitErr *domain.CommitError
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.Error = "invalid request"
		resp.Problems = verr.Problems
	case errors.As(err, &nf):
		status = http.StatusNotFound
		resp.Error = nf.Error()
	case errors.As(err, &commitErr):
		resp.Error = "results could not be recorded"
		for _, f := range commitErr.Facts {
			resp.Facts = append(resp.Facts, factPayload{
				PlayerID:  f.PlayerID,
				Day:       f.DayNumber,
				Game:      f.GameNumber,
				Placement: f.Placement,
			})
		}
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		resp.Error = "request timed out"
	default:
		resp.Error = "internal error"
	}

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, r, status, resp)
}
