package crusade

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/rules"
)

// Ledger enforces battle-honour category rules and per-unit caps. It
// rejects invalid additions outright rather than truncating.
type Ledger struct {
	rules rules.Rules
	calc  *Calculator
}

func NewLedger(r rules.Rules, calc *Calculator) *Ledger {
	return &Ledger{rules: r, calc: calc}
}

// AddHonour validates and appends an honour, then recomputes the unit's
// CP. On rejection the unit is untouched.
func (l *Ledger) AddHonour(u *domain.Unit, h domain.Honour) error {
	if !h.Category.IsValid() {
		return fmt.Errorf("%w: unknown honour category %q", domain.ErrValidation, h.Category)
	}
	if h.Category == domain.HonourCategoryRelic && !u.IsCharacter {
		return fmt.Errorf("%w: relics require a CHARACTER, %s is not one", domain.ErrCategoryViolation, u.Name)
	}
	if h.Category == domain.HonourCategoryWeaponMod {
		if err := validateWeaponMod(h); err != nil {
			return err
		}
	}

	limit := l.rules.HonourLimit(u.IsCharacter, u.HasLegendaryVeterans)
	if len(u.BattleHonours) >= limit {
		return fmt.Errorf("%w: %s already has %d battle honours (limit %d)",
			domain.ErrCapExceeded, u.Name, len(u.BattleHonours), limit)
	}

	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	u.BattleHonours = append(u.BattleHonours, h)
	l.calc.Refresh(u)
	return nil
}

// RemoveHonour strips the honour with the given id and recomputes CP.
// Used by Devastating Blow and by Repair & Recuperate style effects.
func (l *Ledger) RemoveHonour(u *domain.Unit, honourID uuid.UUID) (domain.Honour, error) {
	i := u.HonourIndex(honourID)
	if i < 0 {
		return domain.Honour{}, fmt.Errorf("%w: honour %s on %s", domain.ErrNotFound, honourID, u.Name)
	}
	h := u.RemoveHonourAt(i)
	l.calc.Refresh(u)
	return h, nil
}

// ReplaceWeaponModification atomically swaps the modification pair (and
// optionally the weapon) on an existing Weapon Modification honour.
// Partial application never happens: validation precedes any change.
func (l *Ledger) ReplaceWeaponModification(u *domain.Unit, honourID uuid.UUID, weaponName string, modificationIDs []string) error {
	i := u.HonourIndex(honourID)
	if i < 0 {
		return fmt.Errorf("%w: honour %s on %s", domain.ErrNotFound, honourID, u.Name)
	}
	h := u.BattleHonours[i]
	if h.Category != domain.HonourCategoryWeaponMod {
		return fmt.Errorf("%w: honour %q is not a weapon modification", domain.ErrValidation, h.Name)
	}
	candidate := h
	if weaponName != "" {
		candidate.WeaponName = weaponName
	}
	candidate.ModificationIDs = modificationIDs
	if err := validateWeaponMod(candidate); err != nil {
		return err
	}
	u.BattleHonours[i] = candidate
	return nil
}

// validateWeaponMod enforces the all-or-nothing pair rule: exactly two
// distinct modification ids on a single named weapon.
func validateWeaponMod(h domain.Honour) error {
	if h.WeaponName == "" {
		return fmt.Errorf("%w: weapon modification requires a weapon name", domain.ErrValidation)
	}
	if len(h.ModificationIDs) != 2 {
		return fmt.Errorf("%w: weapon modification requires exactly two modification ids, got %d",
			domain.ErrValidation, len(h.ModificationIDs))
	}
	if h.ModificationIDs[0] == h.ModificationIDs[1] {
		return fmt.Errorf("%w: weapon modification ids must be distinct", domain.ErrValidation)
	}
	return nil
}
