package domain

import (
	"github.com/google/uuid"
)

// Player owns a requisition-point pool and an ordered roster of units.
// UnitOrder is display order only; it carries no rule meaning.
type Player struct {
	ID     uuid.UUID  `json:"id"`
	UserID *uuid.UUID `json:"userId,omitempty"`

	Name    string `json:"name"`
	Faction string `json:"faction,omitempty"`
	Army    string `json:"army,omitempty"`

	RequisitionPoints int `json:"requisitionPoints"`
	SupplyLimit       int `json:"supplyLimit"`

	UnitOrder []uuid.UUID `json:"unitOrder"`
}

// RemoveUnit drops a unit id from the roster order, if present.
func (p *Player) RemoveUnit(id uuid.UUID) {
	for i, uid := range p.UnitOrder {
		if uid == id {
			p.UnitOrder = append(p.UnitOrder[:i], p.UnitOrder[i+1:]...)
			return
		}
	}
}
