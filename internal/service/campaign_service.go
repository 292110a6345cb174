package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dom/crusade-tracker/internal/crusade"
	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/rules"
	"github.com/dom/crusade-tracker/internal/snapshot"
)

// CampaignService owns the in-memory campaign registry. Every public
// operation runs as an atomic section under the campaign's own lock, so
// two mutations of the same campaign never interleave; different
// campaigns proceed in parallel.
type CampaignService struct {
	rules       rules.Rules
	calc        *crusade.Calculator
	ledger      *crusade.Ledger
	market      *crusade.Market
	validator   *crusade.Validator
	coordinator *snapshot.Coordinator
	sink        EventSink
	log         *logrus.Logger

	mu        sync.Mutex
	campaigns map[uuid.UUID]*campaignHandle
}

type campaignHandle struct {
	mu  sync.Mutex
	doc snapshot.Document
}

func NewCampaignService(r rules.Rules, coordinator *snapshot.Coordinator, sink EventSink, log *logrus.Logger) *CampaignService {
	calc := crusade.NewCalculator(r)
	ledger := crusade.NewLedger(r, calc)
	return &CampaignService{
		rules:       r,
		calc:        calc,
		ledger:      ledger,
		market:      crusade.NewMarket(r, calc, ledger),
		validator:   crusade.NewValidator(r, calc),
		coordinator: coordinator,
		sink:        sink,
		log:         log,
		campaigns:   make(map[uuid.UUID]*campaignHandle),
	}
}

type CreateCampaignInput struct {
	Name        string
	OwnerID     uuid.UUID
	Edition     string
	SupplyLimit int
}

func (s *CampaignService) Create(ctx context.Context, input CreateCampaignInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: campaign name is required", domain.ErrValidation)
	}
	if input.SupplyLimit <= 0 {
		return nil, fmt.Errorf("%w: supply limit must be positive", domain.ErrValidation)
	}

	c := domain.NewCampaign(input.Name, input.OwnerID, domain.CampaignConfig{
		Edition:     input.Edition,
		SupplyLimit: input.SupplyLimit,
	})
	s.appendEvent(c, domain.EventCampaignCreated, fmt.Sprintf("campaign %q created", c.Name), map[string]string{
		"campaignId": c.ID.String(),
	})

	h := &campaignHandle{doc: snapshot.Document{Campaign: c}}
	s.mu.Lock()
	s.campaigns[c.ID] = h
	s.mu.Unlock()

	if err := s.coordinator.Save(ctx, h.doc); err != nil {
		return nil, err
	}
	return cloneCampaign(c)
}

// Get returns a copy of the campaign, loading it from the snapshot
// store on first access.
func (s *CampaignService) Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	var out *domain.Campaign
	err := s.withCampaign(ctx, id, func(doc *snapshot.Document) error {
		var err error
		out, err = cloneCampaign(doc.Campaign)
		return err
	})
	return out, err
}

// List returns copies of every campaign owned by the given user,
// loading any not yet in memory. Campaigns whose snapshots cannot be
// restored are skipped with a warning rather than failing the listing.
func (s *CampaignService) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Campaign, error) {
	ids, err := s.coordinator.Campaigns(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Campaign, 0, len(ids))
	for _, id := range ids {
		c, err := s.Get(ctx, id)
		if err != nil {
			s.log.WithField("campaign_id", id).WithError(err).Warn("skipping unloadable campaign in listing")
			continue
		}
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Delete drops the campaign from memory and removes its snapshot ring.
func (s *CampaignService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.campaigns, id)
	s.mu.Unlock()
	return s.coordinator.Delete(ctx, id)
}

// Recover reloads the campaign from the snapshot ring, discarding the
// in-memory copy, and returns the validator report of the snapshot that
// won.
func (s *CampaignService) Recover(ctx context.Context, id uuid.UUID) (*domain.Campaign, crusade.Report, error) {
	doc, rep, err := s.coordinator.Load(ctx, id)
	if err != nil {
		return nil, crusade.Report{}, err
	}

	s.mu.Lock()
	s.campaigns[id] = &campaignHandle{doc: doc}
	s.mu.Unlock()

	c, err := cloneCampaign(doc.Campaign)
	if err != nil {
		return nil, crusade.Report{}, err
	}
	return c, rep, nil
}

// Save snapshots the campaign's current in-memory state.
func (s *CampaignService) Save(ctx context.Context, id uuid.UUID) error {
	return s.withCampaign(ctx, id, func(doc *snapshot.Document) error {
		doc.Campaign.AppendEvent(domain.EventCampaignSaved, "campaign saved", nil, s.rules.EventLogLimit)
		return s.coordinator.Save(ctx, *doc)
	})
}

// Validate runs the full-graph validator; auto-fixes are recorded in
// the event log.
func (s *CampaignService) Validate(ctx context.Context, id uuid.UUID) (crusade.Report, error) {
	var rep crusade.Report
	err := s.withCampaign(ctx, id, func(doc *snapshot.Document) error {
		rep = s.validator.Validate(doc.Campaign)
		for _, fix := range rep.AutoFixed {
			s.appendEvent(doc.Campaign, domain.EventValidatorAutoFix, fix.Message, map[string]string{
				"code":     fix.Code,
				"entityId": fix.EntityID.String(),
			})
		}
		return nil
	})
	return rep, err
}

type AddPlayerInput struct {
	Name    string
	Faction string
	Army    string
	UserID  *uuid.UUID
}

func (s *CampaignService) AddPlayer(ctx context.Context, campaignID uuid.UUID, input AddPlayerInput) (*domain.Player, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: player name is required", domain.ErrValidation)
	}

	var out *domain.Player
	err := s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		p := &domain.Player{
			ID:                uuid.New(),
			UserID:            input.UserID,
			Name:              input.Name,
			Faction:           input.Faction,
			Army:              input.Army,
			RequisitionPoints: s.rules.StartingRequisitionPoints,
			SupplyLimit:       c.Config.SupplyLimit,
			UnitOrder:         []uuid.UUID{},
		}
		c.Players[p.ID] = p
		s.appendEvent(c, domain.EventPlayerJoined, fmt.Sprintf("%s joined the campaign", p.Name), map[string]string{
			"playerId": p.ID.String(),
		})
		out = clonePlayer(p)
		return nil
	})
	return out, err
}

func (s *CampaignService) RemovePlayer(ctx context.Context, campaignID, playerID uuid.UUID) error {
	return s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		p, ok := c.Player(playerID)
		if !ok {
			return fmt.Errorf("%w: player %s", domain.ErrNotFound, playerID)
		}
		name := p.Name
		c.RemovePlayer(playerID)
		s.appendEvent(c, domain.EventPlayerRemoved, fmt.Sprintf("%s left the campaign", name), map[string]string{
			"playerId": playerID.String(),
		})
		return nil
	})
}

func (s *CampaignService) AddUnit(ctx context.Context, campaignID, playerID uuid.UUID, input UnitInput) (*domain.Unit, error) {
	var out *domain.Unit
	err := s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		u, err := s.addUnit(doc.Campaign, playerID, input)
		if err != nil {
			return err
		}
		s.appendEvent(doc.Campaign, domain.EventUnitAdded, fmt.Sprintf("%s added to the roster", u.Name), map[string]string{
			"unitId":   u.ID.String(),
			"playerId": playerID.String(),
		})
		out = cloneUnit(u)
		return nil
	})
	return out, err
}

func (s *CampaignService) RemoveUnit(ctx context.Context, campaignID, unitID uuid.UUID) error {
	return s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		u, ok := c.Unit(unitID)
		if !ok {
			return fmt.Errorf("%w: unit %s", domain.ErrNotFound, unitID)
		}
		name := u.Name
		c.RemoveUnit(unitID)
		s.appendEvent(c, domain.EventUnitRemoved, fmt.Sprintf("%s removed from the roster", name), map[string]string{
			"unitId": unitID.String(),
		})
		return nil
	})
}

type UpdateUnitInput struct {
	Name  *string `json:"name,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

func (s *CampaignService) UpdateUnit(ctx context.Context, campaignID, unitID uuid.UUID, input UpdateUnitInput) (*domain.Unit, error) {
	var out *domain.Unit
	err := s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		u, ok := c.Unit(unitID)
		if !ok {
			return fmt.Errorf("%w: unit %s", domain.ErrNotFound, unitID)
		}
		if input.Name != nil {
			if *input.Name == "" {
				return fmt.Errorf("%w: unit name cannot be empty", domain.ErrValidation)
			}
			u.Name = *input.Name
		}
		if input.Notes != nil {
			u.Notes = *input.Notes
		}
		s.appendEvent(c, domain.EventUnitUpdated, fmt.Sprintf("%s updated", u.Name), map[string]string{
			"unitId": unitID.String(),
		})
		out = cloneUnit(u)
		return nil
	})
	return out, err
}

type HonourInput struct {
	Category        domain.HonourCategory
	Name            string
	Description     string
	WeaponName      string
	ModificationIDs []string
}

func (s *CampaignService) AddHonour(ctx context.Context, campaignID, unitID uuid.UUID, input HonourInput) (*domain.Unit, error) {
	var out *domain.Unit
	err := s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		u, ok := c.Unit(unitID)
		if !ok {
			return fmt.Errorf("%w: unit %s", domain.ErrNotFound, unitID)
		}
		h := domain.Honour{
			Category:        input.Category,
			Name:            input.Name,
			Description:     input.Description,
			WeaponName:      input.WeaponName,
			ModificationIDs: input.ModificationIDs,
		}
		if err := s.ledger.AddHonour(u, h); err != nil {
			return err
		}
		s.appendEvent(c, domain.EventHonourAdded, fmt.Sprintf("%s gained %q", u.Name, input.Name), map[string]string{
			"unitId":   unitID.String(),
			"category": string(input.Category),
		})
		out = cloneUnit(u)
		return nil
	})
	return out, err
}

func (s *CampaignService) RemoveHonour(ctx context.Context, campaignID, unitID, honourID uuid.UUID) (*domain.Unit, error) {
	var out *domain.Unit
	err := s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		u, ok := c.Unit(unitID)
		if !ok {
			return fmt.Errorf("%w: unit %s", domain.ErrNotFound, unitID)
		}
		h, err := s.ledger.RemoveHonour(u, honourID)
		if err != nil {
			return err
		}
		s.appendEvent(c, domain.EventHonourRemoved, fmt.Sprintf("%s lost %q", u.Name, h.Name), map[string]string{
			"unitId":   unitID.String(),
			"honourId": honourID.String(),
		})
		out = cloneUnit(u)
		return nil
	})
	return out, err
}

func (s *CampaignService) AddScar(ctx context.Context, campaignID, unitID uuid.UUID, name, description string) (*domain.Unit, error) {
	var out *domain.Unit
	err := s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		u, ok := c.Unit(unitID)
		if !ok {
			return fmt.Errorf("%w: unit %s", domain.ErrNotFound, unitID)
		}
		if len(u.BattleScars) >= s.rules.ScarLimit {
			return fmt.Errorf("%w: %s already has %d battle scars (limit %d)",
				domain.ErrCapExceeded, u.Name, len(u.BattleScars), s.rules.ScarLimit)
		}
		scar := domain.Scar{ID: uuid.New(), Name: name, Description: description}
		u.BattleScars = append(u.BattleScars, scar)
		s.calc.Refresh(u)
		s.appendEvent(c, domain.EventScarAdded, fmt.Sprintf("%s suffered %q", u.Name, name), map[string]string{
			"unitId": unitID.String(),
			"scarId": scar.ID.String(),
		})
		out = cloneUnit(u)
		return nil
	})
	return out, err
}

// RequisitionQuote is a cost preview: no campaign state changes.
type RequisitionQuote struct {
	Type       crusade.RequisitionType `json:"type"`
	Cost       int                     `json:"cost"`
	Affordable bool                    `json:"affordable"`
}

// Quote resolves a requisition's live cost without purchasing it.
func (s *CampaignService) Quote(ctx context.Context, campaignID uuid.UUID, req crusade.PurchaseRequest) (RequisitionQuote, error) {
	var out RequisitionQuote
	err := s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		p, ok := c.Player(req.PlayerID)
		if !ok {
			return fmt.Errorf("%w: player %s", domain.ErrNotFound, req.PlayerID)
		}
		cost, err := s.market.Cost(c, req)
		if err != nil {
			return err
		}
		out = RequisitionQuote{Type: req.Type, Cost: cost, Affordable: p.RequisitionPoints >= cost}
		return nil
	})
	return out, err
}

// Purchase runs a requisition through the market. Events appended by
// the purchase are forwarded to the sink.
func (s *CampaignService) Purchase(ctx context.Context, campaignID uuid.UUID, req crusade.PurchaseRequest) (crusade.Purchase, error) {
	var out crusade.Purchase
	err := s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		before := len(c.EventLog)
		got, err := s.market.Buy(c, req)
		if err != nil {
			return err
		}
		out = got
		for _, ev := range c.EventLog[before:] {
			s.sink.Publish(c.ID, ev)
		}
		return nil
	})
	return out, err
}

// EventLog returns up to limit most recent events, newest last.
func (s *CampaignService) EventLog(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.Event, error) {
	var out []domain.Event
	err := s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		log := doc.Campaign.EventLog
		if limit > 0 && len(log) > limit {
			log = log[len(log)-limit:]
		}
		out = append([]domain.Event(nil), log...)
		return nil
	})
	return out, err
}

// StartAutosave snapshots every loaded campaign on the given interval
// until the context is cancelled.
func (s *CampaignService) StartAutosave(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.saveAll(ctx)
			}
		}
	}()
}

func (s *CampaignService) saveAll(ctx context.Context) {
	s.mu.Lock()
	handles := make(map[uuid.UUID]*campaignHandle, len(s.campaigns))
	for id, h := range s.campaigns {
		handles[id] = h
	}
	s.mu.Unlock()

	for id, h := range handles {
		h.mu.Lock()
		err := s.coordinator.Save(ctx, h.doc)
		h.mu.Unlock()
		if err != nil {
			s.log.WithField("campaign_id", id).WithError(err).Error("autosave failed")
		}
	}
}

// withCampaign runs fn holding the campaign's lock, loading the
// campaign from the snapshot store on first access.
func (s *CampaignService) withCampaign(ctx context.Context, id uuid.UUID, fn func(doc *snapshot.Document) error) error {
	h, err := s.handle(ctx, id)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(&h.doc)
}

func (s *CampaignService) handle(ctx context.Context, id uuid.UUID) (*campaignHandle, error) {
	s.mu.Lock()
	h, ok := s.campaigns[id]
	s.mu.Unlock()
	if ok {
		return h, nil
	}

	doc, _, err := s.coordinator.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.campaigns[id]; ok {
		return existing, nil
	}
	h = &campaignHandle{doc: doc}
	s.campaigns[id] = h
	return h, nil
}

func (s *CampaignService) addUnit(c *domain.Campaign, playerID uuid.UUID, input UnitInput) (*domain.Unit, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	u := &domain.Unit{
		ID:                   uuid.New(),
		OwnerID:              playerID,
		Name:                 input.Name,
		Datasheet:            input.Datasheet,
		Role:                 input.Role,
		PointsCost:           input.PointsCost,
		Keywords:             append([]string(nil), input.Keywords...),
		IsCharacter:          input.IsCharacter,
		IsTitanic:            input.IsTitanic,
		IsEpicHero:           input.IsEpicHero,
		IsBattleline:         input.IsBattleline,
		IsDedicatedTransport: input.IsDedicatedTransport,
		IsUnderstrength:      input.IsUnderstrength,
		BattleHonours:        []domain.Honour{},
		BattleScars:          []domain.Scar{},
		Notes:                input.Notes,
	}
	s.calc.Refresh(u)
	if err := c.AddUnit(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *CampaignService) appendEvent(c *domain.Campaign, eventType domain.EventType, description string, data map[string]string) {
	c.AppendEvent(eventType, description, data, s.rules.EventLogLimit)
	s.sink.Publish(c.ID, c.EventLog[len(c.EventLog)-1])
}

func cloneCampaign(c *domain.Campaign) (*domain.Campaign, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out domain.Campaign
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func clonePlayer(p *domain.Player) *domain.Player {
	out := *p
	out.UnitOrder = append([]uuid.UUID(nil), p.UnitOrder...)
	return &out
}

func cloneUnit(u *domain.Unit) *domain.Unit {
	out := *u
	out.Keywords = append([]string(nil), u.Keywords...)
	out.BattleHonours = append([]domain.Honour(nil), u.BattleHonours...)
	for i := range out.BattleHonours {
		out.BattleHonours[i].ModificationIDs = append([]string(nil), u.BattleHonours[i].ModificationIDs...)
	}
	out.BattleScars = append([]domain.Scar(nil), u.BattleScars...)
	return &out
}
