package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignConfig carries per-campaign settings fixed at creation.
type CampaignConfig struct {
	Edition          string `json:"edition"`
	SupplyLimit      int    `json:"supplyLimit"`
	AutosaveInterval int    `json:"autosaveIntervalSeconds,omitempty"`
}

// Campaign is the aggregate root. It exclusively owns its players, units
// and battle records; a unit's OwnerID is a back-reference resolved by
// lookup, never an ownership edge.
type Campaign struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	OwnerID uuid.UUID `json:"ownerId"`

	Config CampaignConfig `json:"config"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Players map[uuid.UUID]*Player       `json:"players"`
	Units   map[uuid.UUID]*Unit         `json:"units"`
	Battles map[uuid.UUID]*BattleRecord `json:"battles"`

	EventLog []Event `json:"eventLog"`
}

// NewCampaign creates an empty campaign. Timestamps are UTC so the
// aggregate round-trips losslessly through JSON.
func NewCampaign(name string, ownerID uuid.UUID, cfg CampaignConfig) *Campaign {
	now := time.Now().UTC()
	return &Campaign{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   ownerID,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
		Players:   make(map[uuid.UUID]*Player),
		Units:     make(map[uuid.UUID]*Unit),
		Battles:   make(map[uuid.UUID]*BattleRecord),
		EventLog:  []Event{},
	}
}

// Player resolves a player id.
func (c *Campaign) Player(id uuid.UUID) (*Player, bool) {
	p, ok := c.Players[id]
	return p, ok
}

// Unit resolves a unit id.
func (c *Campaign) Unit(id uuid.UUID) (*Unit, bool) {
	u, ok := c.Units[id]
	return u, ok
}

// Battle resolves a battle id.
func (c *Campaign) Battle(id uuid.UUID) (*BattleRecord, bool) {
	b, ok := c.Battles[id]
	return b, ok
}

// AddUnit attaches a unit to the campaign and to its owner's roster
// order. The owner must exist.
func (c *Campaign) AddUnit(u *Unit) error {
	owner, ok := c.Players[u.OwnerID]
	if !ok {
		return fmt.Errorf("%w: player %s", ErrNotFound, u.OwnerID)
	}
	c.Units[u.ID] = u
	owner.UnitOrder = append(owner.UnitOrder, u.ID)
	return nil
}

// RemoveUnit detaches a unit from the campaign and its owner's roster.
func (c *Campaign) RemoveUnit(id uuid.UUID) {
	u, ok := c.Units[id]
	if !ok {
		return
	}
	if owner, ok := c.Players[u.OwnerID]; ok {
		owner.RemoveUnit(id)
	}
	delete(c.Units, id)
}

// RemovePlayer deletes a player and cascade-deletes every unit they own.
func (c *Campaign) RemovePlayer(id uuid.UUID) {
	p, ok := c.Players[id]
	if !ok {
		return
	}
	for _, uid := range append([]uuid.UUID(nil), p.UnitOrder...) {
		delete(c.Units, uid)
	}
	delete(c.Players, id)
}

// SupplyUsed sums the point costs of a player's owned units.
func (c *Campaign) SupplyUsed(playerID uuid.UUID) int {
	total := 0
	for _, u := range c.Units {
		if u.OwnerID == playerID {
			total += u.PointsCost
		}
	}
	return total
}

// EnhancementCount counts roster units of a player carrying an
// enhancement; Renowned Heroes pricing depends on it.
func (c *Campaign) EnhancementCount(playerID uuid.UUID) int {
	n := 0
	for _, u := range c.Units {
		if u.OwnerID == playerID && u.HasEnhancement {
			n++
		}
	}
	return n
}

// AppendEvent appends an audit entry, stamping a timestamp strictly
// greater than the previous entry's so in-session ordering is total even
// on coarse clocks. The log is bounded; oldest entries are trimmed.
func (c *Campaign) AppendEvent(eventType EventType, description string, data map[string]string, limit int) {
	ts := time.Now().UTC()
	if n := len(c.EventLog); n > 0 {
		if last := c.EventLog[n-1].Timestamp; !ts.After(last) {
			ts = last.Add(time.Millisecond)
		}
	}
	c.EventLog = append(c.EventLog, Event{
		Timestamp:   ts,
		Type:        eventType,
		Description: description,
		Data:        data,
	})
	if limit > 0 && len(c.EventLog) > limit {
		c.EventLog = append([]Event{}, c.EventLog[len(c.EventLog)-limit:]...)
	}
	c.UpdatedAt = ts
}
