package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/service"
)

type UnitHandler struct {
	campaigns *service.CampaignService
}

func NewUnitHandler(campaigns *service.CampaignService) *UnitHandler {
	return &UnitHandler{campaigns: campaigns}
}

func (h *UnitHandler) Add(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	playerID, ok := pathUUID(r, "playerId")
	if !ok {
		respondBadRequest(w, "invalid player id")
		return
	}

	var input service.UnitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	u, err := h.campaigns.AddUnit(r.Context(), campaignID, playerID, input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, u)
}

func (h *UnitHandler) Import(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	playerID, ok := pathUUID(r, "playerId")
	if !ok {
		respondBadRequest(w, "invalid player id")
		return
	}

	var records []service.UnitInput
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	result, err := h.campaigns.ImportUnits(r.Context(), campaignID, playerID, records)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

func (h *UnitHandler) Update(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	unitID, ok := pathUUID(r, "unitId")
	if !ok {
		respondBadRequest(w, "invalid unit id")
		return
	}

	var input service.UpdateUnitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	u, err := h.campaigns.UpdateUnit(r.Context(), campaignID, unitID, input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, u)
}

func (h *UnitHandler) Remove(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	unitID, ok := pathUUID(r, "unitId")
	if !ok {
		respondBadRequest(w, "invalid unit id")
		return
	}
	if err := h.campaigns.RemoveUnit(r.Context(), campaignID, unitID); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

type addHonourRequest struct {
	Category        string   `json:"category"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	WeaponName      string   `json:"weaponName,omitempty"`
	ModificationIDs []string `json:"modificationIds,omitempty"`
}

func (h *UnitHandler) AddHonour(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	unitID, ok := pathUUID(r, "unitId")
	if !ok {
		respondBadRequest(w, "invalid unit id")
		return
	}

	var req addHonourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	u, err := h.campaigns.AddHonour(r.Context(), campaignID, unitID, service.HonourInput{
		Category:        domain.HonourCategory(req.Category),
		Name:            req.Name,
		Description:     req.Description,
		WeaponName:      req.WeaponName,
		ModificationIDs: req.ModificationIDs,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, u)
}

func (h *UnitHandler) RemoveHonour(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	unitID, ok := pathUUID(r, "unitId")
	if !ok {
		respondBadRequest(w, "invalid unit id")
		return
	}
	honourID, ok := pathUUID(r, "honourId")
	if !ok {
		respondBadRequest(w, "invalid honour id")
		return
	}

	u, err := h.campaigns.RemoveHonour(r.Context(), campaignID, unitID, honourID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, u)
}

type addScarRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *UnitHandler) AddScar(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	unitID, ok := pathUUID(r, "unitId")
	if !ok {
		respondBadRequest(w, "invalid unit id")
		return
	}

	var req addScarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	u, err := h.campaigns.AddScar(r.Context(), campaignID, unitID, req.Name, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, u)
}
