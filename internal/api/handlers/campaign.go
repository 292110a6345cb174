package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dom/crusade-tracker/internal/api/middleware"
	"github.com/dom/crusade-tracker/internal/crusade"
	"github.com/dom/crusade-tracker/internal/service"
)

type CampaignHandler struct {
	campaigns *service.CampaignService
}

func NewCampaignHandler(campaigns *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

type createCampaignRequest struct {
	Name        string `json:"name"`
	Edition     string `json:"edition"`
	SupplyLimit int    `json:"supplyLimit"`
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	c, err := h.campaigns.Create(r.Context(), service.CreateCampaignInput{
		Name:        req.Name,
		OwnerID:     userID,
		Edition:     req.Edition,
		SupplyLimit: req.SupplyLimit,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, c)
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	campaigns, err := h.campaigns.List(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, campaigns)
}

func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	if err := h.campaigns.Delete(r.Context(), campaignID); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	c, err := h.campaigns.Get(r.Context(), campaignID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, c)
}

func (h *CampaignHandler) Save(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	if err := h.campaigns.Save(r.Context(), campaignID); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

func (h *CampaignHandler) Recover(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	c, report, err := h.campaigns.Recover(r.Context(), campaignID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]interface{}{
		"campaign": c,
		"report":   report,
	})
}

func (h *CampaignHandler) Validate(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	report, err := h.campaigns.Validate(r.Context(), campaignID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, report)
}

func (h *CampaignHandler) Events(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	events, err := h.campaigns.EventLog(r.Context(), campaignID, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, events)
}

type addPlayerRequest struct {
	Name    string `json:"name"`
	Faction string `json:"faction"`
	Army    string `json:"army"`
}

func (h *CampaignHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}

	var req addPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	input := service.AddPlayerInput{Name: req.Name, Faction: req.Faction, Army: req.Army}
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		input.UserID = &userID
	}

	p, err := h.campaigns.AddPlayer(r.Context(), campaignID, input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, p)
}

func (h *CampaignHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
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
	if err := h.campaigns.RemovePlayer(r.Context(), campaignID, playerID); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

type purchaseRequest struct {
	Type            string   `json:"type"`
	PlayerID        string   `json:"playerId"`
	UnitID          *string  `json:"unitId,omitempty"`
	ScarID          *string  `json:"scarId,omitempty"`
	HonourID        *string  `json:"honourId,omitempty"`
	WeaponName      string   `json:"weaponName,omitempty"`
	ModificationIDs []string `json:"modificationIds,omitempty"`
}

// decodePurchase parses the shared purchase/quote body; it writes the
// 400 response itself when parsing fails.
func decodePurchase(w http.ResponseWriter, r *http.Request) (crusade.PurchaseRequest, bool) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return crusade.PurchaseRequest{}, false
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		respondBadRequest(w, "invalid player id")
		return crusade.PurchaseRequest{}, false
	}

	market := crusade.PurchaseRequest{
		Type:            crusade.RequisitionType(req.Type),
		PlayerID:        playerID,
		WeaponName:      req.WeaponName,
		ModificationIDs: req.ModificationIDs,
	}
	for _, ref := range []struct {
		src *string
		dst **uuid.UUID
	}{
		{req.UnitID, &market.UnitID},
		{req.ScarID, &market.ScarID},
		{req.HonourID, &market.HonourID},
	} {
		if ref.src == nil {
			continue
		}
		id, err := uuid.Parse(*ref.src)
		if err != nil {
			respondBadRequest(w, "invalid id in request")
			return crusade.PurchaseRequest{}, false
		}
		*ref.dst = &id
	}
	return market, true
}

func (h *CampaignHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	market, ok := decodePurchase(w, r)
	if !ok {
		return
	}

	purchase, err := h.campaigns.Purchase(r.Context(), campaignID, market)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, purchase)
}

func (h *CampaignHandler) QuoteRequisition(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignId")
	if !ok {
		respondBadRequest(w, "invalid campaign id")
		return
	}
	market, ok := decodePurchase(w, r)
	if !ok {
		return
	}

	quote, err := h.campaigns.Quote(r.Context(), campaignID, market)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, quote)
}
