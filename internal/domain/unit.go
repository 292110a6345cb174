package domain

import (
	"github.com/google/uuid"
)

// Tallies accumulates a unit's lifetime combat record.
type Tallies struct {
	Kills               int `json:"kills"`
	BattlesParticipated int `json:"battlesParticipated"`
}

// Unit is the central mutable entity of a campaign roster.
//
// ExperiencePoints is monotonically non-decreasing under normal play;
// Rank and CrusadePoints are derived and must be recomputable from the
// rest of the struct at any time.
type Unit struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"ownerId"`

	Name       string   `json:"name"`
	Datasheet  string   `json:"datasheet,omitempty"`
	Role       string   `json:"role,omitempty"`
	PointsCost int      `json:"pointsCost"`
	Keywords   []string `json:"keywords,omitempty"`

	IsCharacter          bool `json:"isCharacter"`
	IsTitanic            bool `json:"isTitanic"`
	IsEpicHero           bool `json:"isEpicHero"`
	IsBattleline         bool `json:"isBattleline"`
	IsDedicatedTransport bool `json:"isDedicatedTransport"`

	ExperiencePoints int `json:"experiencePoints"`
	Rank             int `json:"rank"`
	CrusadePoints    int `json:"crusadePoints"`

	BattleHonours []Honour `json:"battleHonours"`
	BattleScars   []Scar   `json:"battleScars"`
	CombatTallies Tallies  `json:"combatTallies"`

	HasLegendaryVeterans bool `json:"hasLegendaryVeterans"`
	HasEnhancement       bool `json:"hasEnhancement"`
	IsUnderstrength      bool `json:"isUnderstrength"`

	Notes string `json:"notes,omitempty"`
}

// HonourIndex returns the position of the honour with the given id, or -1.
func (u *Unit) HonourIndex(id uuid.UUID) int {
	for i := range u.BattleHonours {
		if u.BattleHonours[i].ID == id {
			return i
		}
	}
	return -1
}

// RemoveHonourAt removes the honour at index i, preserving order.
func (u *Unit) RemoveHonourAt(i int) Honour {
	h := u.BattleHonours[i]
	u.BattleHonours = append(u.BattleHonours[:i], u.BattleHonours[i+1:]...)
	return h
}

// ScarIndex returns the position of the scar with the given id, or -1.
func (u *Unit) ScarIndex(id uuid.UUID) int {
	for i := range u.BattleScars {
		if u.BattleScars[i].ID == id {
			return i
		}
	}
	return -1
}

// RemoveScarAt removes the scar at index i, preserving order.
func (u *Unit) RemoveScarAt(i int) Scar {
	s := u.BattleScars[i]
	u.BattleScars = append(u.BattleScars[:i], u.BattleScars[i+1:]...)
	return s
}
