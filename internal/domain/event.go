package domain

import (
	"time"
)

// EventType identifies the kind of a campaign event. Types are
// dot-namespaced by the entity they concern.
type EventType string

const (
	EventCampaignCreated EventType = "campaign.created"
	EventCampaignSaved   EventType = "campaign.saved"

	EventPlayerJoined  EventType = "player.joined"
	EventPlayerRemoved EventType = "player.removed"

	EventUnitAdded       EventType = "unit.added"
	EventUnitImported    EventType = "unit.imported"
	EventUnitUpdated     EventType = "unit.updated"
	EventUnitRemoved     EventType = "unit.removed"
	EventUnitDestroyed   EventType = "unit.destroyed"
	EventHonourAdded     EventType = "unit.honour_added"
	EventHonourRemoved   EventType = "unit.honour_removed"
	EventScarAdded       EventType = "unit.scar_added"
	EventRankGained      EventType = "unit.rank_gained"
	EventLegendaryGained EventType = "unit.legendary_veterans"

	EventBattleStarted     EventType = "battle.started"
	EventBattleCompleted   EventType = "battle.completed"
	EventBattleDiscarded   EventType = "battle.discarded"
	EventOutOfActionRolled EventType = "battle.out_of_action_rolled"
	EventOutOfActionChosen EventType = "battle.out_of_action_chosen"

	EventRequisitionPurchased EventType = "requisition.purchased"

	EventValidatorAutoFix EventType = "validator.auto_fix"
)

// Event is one append-only audit entry. Data values are flat strings so
// entries round-trip losslessly through JSON.
type Event struct {
	Timestamp   time.Time         `json:"timestamp"`
	Type        EventType         `json:"type"`
	Description string            `json:"description"`
	Data        map[string]string `json:"data,omitempty"`
}
