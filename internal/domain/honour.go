package domain

import "github.com/google/uuid"

type HonourCategory string

const (
	HonourCategoryTrait     HonourCategory = "trait"
	HonourCategoryWeaponMod HonourCategory = "weapon_mod"
	HonourCategoryRelic     HonourCategory = "relic"
)

func (c HonourCategory) IsValid() bool {
	switch c {
	case HonourCategoryTrait, HonourCategoryWeaponMod, HonourCategoryRelic:
		return true
	}
	return false
}

// Honour is a permanent unit upgrade: a Battle Trait, a Weapon
// Modification, or a Crusade Relic. Weapon Modifications carry exactly
// two distinct modification ids applied to a single weapon.
type Honour struct {
	ID          uuid.UUID      `json:"id"`
	Category    HonourCategory `json:"category"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`

	// Weapon Modification fields; empty for other categories.
	WeaponName      string   `json:"weaponName,omitempty"`
	ModificationIDs []string `json:"modificationIds,omitempty"`
}

// Scar is a permanent negative effect from a failed Out of Action test.
type Scar struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
}
