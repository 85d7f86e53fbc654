// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"

	service "github.com/focusup/backend/internal/app"
	"github.com/focusup/backend/internal/domain/model"
)

// RankingHandler handles leaderboard requests.
type RankingHandler struct {
	deps Dependencies
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps Dependencies) *RankingHandler {
	return &RankingHandler{deps: deps}
}

// rankingResponse mirrors the OpenAPI schema for GET /api/scores/ranking.
type rankingResponse struct {
	Game         model.Game             `json:"game"`
	Standings    []service.RankedPlayer `json:"standings"`
	TotalPlayers int                    `json:"totalPlayers"`
}

// HandleGetRanking handles GET /api/scores/ranking?game=&limit= requests.
func (h *RankingHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	game := model.Game(r.URL.Query().Get("game"))
	if game == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	var limit int
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	standings, totalPlayers, err := h.deps.Ranking(r.Context(), game, limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rankingResponse{Game: game, Standings: standings, TotalPlayers: totalPlayers})
}
