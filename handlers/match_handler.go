package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/cuelane/pool-league-system/middleware"
	"github.com/cuelane/pool-league-system/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// GetMatch godoc
// @Summary Get a match by id
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} models.Match
// @Router /matches/{matchID} [get]
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListMyMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	matches, err := h.matchService.ListByPlayer(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ProposeDates godoc
// @Summary Propose candidate dates for a pending match
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Router /matches/{matchID}/dates/propose [post]
func (h *MatchHandler) ProposeDates(w http.ResponseWriter, r *http.Request) {
	matchID, userID, ok := h.matchAndCaller(w, r)
	if !ok {
		return
	}

	var input struct {
		Dates []time.Time `json:"dates"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.ProposeDates(r.Context(), matchID, userID, input.Dates)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SelectDates godoc
// @Summary Select preferred dates from the proposed set
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Router /matches/{matchID}/dates/select [post]
func (h *MatchHandler) SelectDates(w http.ResponseWriter, r *http.Request) {
	matchID, userID, ok := h.matchAndCaller(w, r)
	if !ok {
		return
	}

	var input struct {
		Dates []time.Time `json:"dates"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.SelectDates(r.Context(), matchID, userID, input.Dates)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResult godoc
// @Summary Submit the score of a played match
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Router /matches/{matchID}/result [post]
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	matchID, userID, ok := h.matchAndCaller(w, r)
	if !ok {
		return
	}

	var input struct {
		Player1Points *int `json:"player_1_points"`
		Player2Points *int `json:"player_2_points"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Player1Points == nil || input.Player2Points == nil {
		badRequestResponse(w, r, errors.New("player_1_points and player_2_points are required"))
		return
	}

	match, err := h.matchService.SubmitResult(r.Context(), matchID, userID, *input.Player1Points, *input.Player2Points)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConfirmResult godoc
// @Summary Confirm or reject a submitted result
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Router /matches/{matchID}/result/confirm [post]
func (h *MatchHandler) ConfirmResult(w http.ResponseWriter, r *http.Request) {
	matchID, userID, ok := h.matchAndCaller(w, r)
	if !ok {
		return
	}

	var input struct {
		Confirm *bool `json:"confirm"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Confirm == nil {
		badRequestResponse(w, r, errors.New("confirm is required"))
		return
	}

	match, err := h.matchService.ConfirmResult(r.Context(), matchID, userID, *input.Confirm)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReportForfeit godoc
// @Summary Report the opponent's forfeit
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Router /matches/{matchID}/forfeit [post]
func (h *MatchHandler) ReportForfeit(w http.ResponseWriter, r *http.Request) {
	matchID, userID, ok := h.matchAndCaller(w, r)
	if !ok {
		return
	}

	match, err := h.matchService.ReportForfeit(r.Context(), matchID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteMatch godoc
// @Summary Delete a match and its recorded winners (admin)
// @Tags matches
// @Param matchID path int true "Match ID"
// @Router /matches/{matchID} [delete]
func (h *MatchHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID, adminID, ok := h.matchAndCaller(w, r)
	if !ok {
		return
	}

	if err := h.matchService.DeleteMatch(r.Context(), matchID, adminID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) matchAndCaller(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, 0, false
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return 0, 0, false
	}
	return matchID, userID, true
}
