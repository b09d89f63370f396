package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/playersync/internal/api/apierr"
	"github.com/mcoot/playersync/internal/api/request"
	"github.com/mcoot/playersync/internal/api/response"
	"github.com/mcoot/playersync/internal/model"
	"github.com/mcoot/playersync/internal/services/progression"
)

// ProgressionHandler handles progression endpoints
type ProgressionHandler struct {
	progression *progression.Synchronizer
}

// NewProgressionHandler creates a new progression handler
func NewProgressionHandler(synchronizer *progression.Synchronizer) *ProgressionHandler {
	return &ProgressionHandler{progression: synchronizer}
}

// Get handles GET /api/v1/progression
func (h *ProgressionHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.ProgressionFromModel(
		h.progression.Snapshot(),
		h.progression.PlayerID(),
		h.progression.IsLoaded(),
		h.progression.LoadOutcome(),
	))
}

// AddExperience handles POST /api/v1/progression/experience
func (h *ProgressionHandler) AddExperience(w http.ResponseWriter, r *http.Request) {
	var req request.ExperienceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if !model.ValidExperienceGain(req.Amount) {
		WriteError(w, NewInvalidRequestError(fmt.Sprintf("amount must be between 1 and %d", model.MaxExperienceGain)))
		return
	}

	if !h.progression.AddExperience(req.Amount) {
		WriteError(w, model.ErrNotLoaded)
		return
	}
	response.Accept(w)
}

// UseSkillPoint handles POST /api/v1/progression/skills/{stat}
func (h *ProgressionHandler) UseSkillPoint(w http.ResponseWriter, r *http.Request) {
	stat := mux.Vars(r)["stat"]
	if _, ok := model.ParseStat(stat); !ok {
		WriteError(w, model.ErrUnknownStat)
		return
	}
	if !h.progression.IsLoaded() {
		WriteError(w, model.ErrNotLoaded)
		return
	}

	if !h.progression.UseSkillPoint(stat) {
		WriteError(w, apierr.NewNoSkillPointsError())
		return
	}
	response.Accept(w)
}

// UpdateName handles PUT /api/v1/progression/name
func (h *ProgressionHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	var req request.NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, NewInvalidRequestError("name is required"))
		return
	}

	if !h.progression.UpdatePlayerName(req.Name) {
		WriteError(w, model.ErrNotLoaded)
		return
	}
	response.Accept(w)
}

// Reset handles POST /api/v1/progression/reset
func (h *ProgressionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.progression.Reset()
	response.Accept(w)
}
