package domain

import (
	"time"

	"github.com/google/uuid"
)

type BattleStatus string

const (
	// BattleStatusDraft marks a record still inside the recording
	// workflow; it may be mutated or discarded.
	BattleStatusDraft BattleStatus = "draft"
	// BattleStatusCompleted marks a sealed record; it is append-only
	// history from this point on.
	BattleStatusCompleted BattleStatus = "completed"
)

// Participant ties a player's units into a battle. MarkedForGreatness
// holds at most one unit per player; the +3 XP award is applied at
// completion.
type Participant struct {
	PlayerID           uuid.UUID   `json:"playerId"`
	UnitIDs            []uuid.UUID `json:"unitIds"`
	MarkedForGreatness *uuid.UUID  `json:"markedForGreatness,omitempty"`
}

type OutOfActionState string

const (
	OutOfActionDestroyed         OutOfActionState = "destroyed"
	OutOfActionTestPending       OutOfActionState = "test_pending"
	OutOfActionSurvived          OutOfActionState = "survived"
	OutOfActionConsequenceChosen OutOfActionState = "consequence_chosen"
)

type Consequence string

const (
	ConsequenceDevastatingBlow Consequence = "devastating_blow"
	ConsequenceBattleScar      Consequence = "battle_scar"
)

// OutOfActionRecord tracks one destroyed unit's post-battle fate through
// the resolution state machine. While the battle is a draft the record
// only stages the roll and the player's choice; unit effects land when
// the battle completes. The roll value is retained for audit.
type OutOfActionRecord struct {
	UnitID      uuid.UUID        `json:"unitId"`
	State       OutOfActionState `json:"state"`
	Roll        int              `json:"roll,omitempty"`
	Consequence Consequence      `json:"consequence,omitempty"`

	// ScarName is the staged name for a chosen BattleScar; the scar
	// itself is created at completion.
	ScarName string `json:"scarName,omitempty"`

	// Applied is set once the consequence has mutated the unit.
	Applied bool `json:"applied,omitempty"`

	// Escalated is set when a BattleScar choice was converted to a
	// forced DevastatingBlow by the scar cap.
	Escalated       bool       `json:"escalated,omitempty"`
	RemovedHonourID *uuid.UUID `json:"removedHonourId,omitempty"`
	ScarID          *uuid.UUID `json:"scarId,omitempty"`

	// UnitRemoved is set when a Devastating Blow found no honour to
	// strip and the unit was permanently destroyed.
	UnitRemoved bool `json:"unitRemoved,omitempty"`
}

// XPCategory labels the three disjoint award categories of a battle.
type XPCategory string

const (
	XPCategoryParticipation XPCategory = "participation"
	XPCategoryKills         XPCategory = "kills"
	XPCategoryGreatness     XPCategory = "marked_for_greatness"
)

type XPAward struct {
	UnitID   uuid.UUID  `json:"unitId"`
	Category XPCategory `json:"category"`
	Amount   int        `json:"amount"`
}

// BattleRecord captures one battle. Created as a draft, mutated only
// during the recording workflow, sealed by completion.
type BattleRecord struct {
	ID     uuid.UUID    `json:"id"`
	Status BattleStatus `json:"status"`
	Name   string       `json:"name,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Participants []Participant `json:"participants"`

	// Kills holds per-battle kill tallies keyed by unit id. Awards are
	// computed from these, never from lifetime tallies.
	Kills map[uuid.UUID]int `json:"kills"`

	Destroyed map[uuid.UUID]*OutOfActionRecord `json:"destroyed"`

	XPAwards []XPAward `json:"xpAwards,omitempty"`
}

// Participates reports whether the unit id is fielded in this battle.
func (b *BattleRecord) Participates(unitID uuid.UUID) bool {
	for i := range b.Participants {
		for _, id := range b.Participants[i].UnitIDs {
			if id == unitID {
				return true
			}
		}
	}
	return false
}

// ParticipantFor returns the participant entry owning the unit, or nil.
func (b *BattleRecord) ParticipantFor(unitID uuid.UUID) *Participant {
	for i := range b.Participants {
		for _, id := range b.Participants[i].UnitIDs {
			if id == unitID {
				return &b.Participants[i]
			}
		}
	}
	return nil
}

// Unresolved reports whether any destroyed unit has not reached a
// terminal out-of-action state.
func (b *BattleRecord) Unresolved() bool {
	for _, rec := range b.Destroyed {
		switch rec.State {
		case OutOfActionSurvived, OutOfActionConsequenceChosen:
		default:
			return true
		}
	}
	return false
}
