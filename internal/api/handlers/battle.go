package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/service"
)

type BattleHandler struct {
	battles *service.BattleService
}

func NewBattleHandler(battles *service.BattleService) *BattleHandler {
	return &BattleHandler{battles: battles}
}

func (h *BattleHandler) Start(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}

	var input service.StartBattleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	b, err := h.battles.Start(r.Context(), campaignID, input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, b)
}

type recordKillsRequest struct {
	UnitID string `json:"unitId"`
	Kills  int    `json:"kills"`
}

func (h *BattleHandler) RecordKills(w http.ResponseWriter, r *http.Request) {
	campaignID, battleID, ok := battlePath(w, r)
	if !ok {
		return
	}

	var req recordKillsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	unitID, err := uuid.Parse(req.UnitID)
	if err != nil {
		respondBadRequest(w, "invalid unit id")
		return
	}

	if err := h.battles.RecordKills(r.Context(), campaignID, battleID, unitID, req.Kills); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

type markGreatnessRequest struct {
	PlayerID string `json:"playerId"`
	UnitID   string `json:"unitId"`
}

func (h *BattleHandler) MarkForGreatness(w http.ResponseWriter, r *http.Request) {
	campaignID, battleID, ok := battlePath(w, r)
	if !ok {
		return
	}

	var req markGreatnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		respondBadRequest(w, "invalid player id")
		return
	}
	unitID, err := uuid.Parse(req.UnitID)
	if err != nil {
		respondBadRequest(w, "invalid unit id")
		return
	}

	if err := h.battles.MarkForGreatness(r.Context(), campaignID, battleID, playerID, unitID); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

type destroyedRequest struct {
	UnitID string `json:"unitId"`
}

func (h *BattleHandler) RecordDestroyed(w http.ResponseWriter, r *http.Request) {
	campaignID, battleID, ok := battlePath(w, r)
	if !ok {
		return
	}

	var req destroyedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	unitID, err := uuid.Parse(req.UnitID)
	if err != nil {
		respondBadRequest(w, "invalid unit id")
		return
	}

	if err := h.battles.RecordDestroyed(r.Context(), campaignID, battleID, unitID); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

func (h *BattleHandler) RollOutOfAction(w http.ResponseWriter, r *http.Request) {
	campaignID, battleID, ok := battlePath(w, r)
	if !ok {
		return
	}
	unitID, ok := pathUUID(r, "unitId")
	if !ok {
		respondBadRequest(w, "invalid unit id")
		return
	}

	roll, err := h.battles.RollOutOfAction(r.Context(), campaignID, battleID, unitID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]int{"roll": roll})
}

type consequenceRequest struct {
	Choice   string `json:"choice"`
	ScarName string `json:"scarName,omitempty"`
}

func (h *BattleHandler) ChooseConsequence(w http.ResponseWriter, r *http.Request) {
	campaignID, battleID, ok := battlePath(w, r)
	if !ok {
		return
	}
	unitID, ok := pathUUID(r, "unitId")
	if !ok {
		respondBadRequest(w, "invalid unit id")
		return
	}

	var req consequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	err := h.battles.ChooseConsequence(r.Context(), campaignID, battleID, unitID, domain.Consequence(req.Choice), req.ScarName)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

func (h *BattleHandler) Complete(w http.ResponseWriter, r *http.Request) {
	campaignID, battleID, ok := battlePath(w, r)
	if !ok {
		return
	}

	b, err := h.battles.Complete(r.Context(), campaignID, battleID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, b)
}

func (h *BattleHandler) Discard(w http.ResponseWriter, r *http.Request) {
	campaignID, battleID, ok := battlePath(w, r)
	if !ok {
		return
	}

	if err := h.battles.Discard(r.Context(), campaignID, battleID); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

func battlePath(w http.ResponseWriter, r *http.Request) (campaignID, battleID uuid.UUID, ok bool) {
	campaignID, ok = pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	battleID, ok = pathUUID(r, "battleId")
	if !ok {
		respondBadRequest(w, "invalid battle id")
		return
	}
	return campaignID, battleID, true
}
