package crusade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/rules"
)

func newLedger() (*Ledger, *Calculator) {
	r := rules.Default()
	calc := NewCalculator(r)
	return NewLedger(r, calc), calc
}

func TestAddHonourRefreshesCrusadePoints(t *testing.T) {
	ledger, _ := newLedger()
	u := newTestUnit(func(u *domain.Unit) { u.ExperiencePoints = 7 })

	err := ledger.AddHonour(u, domain.Honour{Category: domain.HonourCategoryTrait, Name: "Grizzled"})

	require.NoError(t, err)
	require.Len(t, u.BattleHonours, 1)
	assert.NotEqual(t, uuid.Nil, u.BattleHonours[0].ID)
	assert.Equal(t, 2, u.CrusadePoints)
}

func TestAddHonourCapLeavesUnitUnchanged(t *testing.T) {
	ledger, calc := newLedger()

	tests := []struct {
		name string
		unit *domain.Unit
		cap  int
	}{
		{name: "standard unit caps at three", unit: newTestUnit(withHonours(3)), cap: 3},
		{
			name: "character caps at six",
			unit: newTestUnit(withHonours(6), func(u *domain.Unit) { u.IsCharacter = true }),
			cap:  6,
		},
		{
			name: "legendary veterans cap at six",
			unit: newTestUnit(withHonours(6), func(u *domain.Unit) { u.HasLegendaryVeterans = true }),
			cap:  6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc.Refresh(tt.unit)
			before := tt.unit.CrusadePoints

			err := ledger.AddHonour(tt.unit, domain.Honour{Category: domain.HonourCategoryTrait, Name: "One Too Many"})

			require.ErrorIs(t, err, domain.ErrCapExceeded)
			assert.Len(t, tt.unit.BattleHonours, tt.cap)
			assert.Equal(t, before, tt.unit.CrusadePoints)
		})
	}
}

func TestAddHonourRelicRequiresCharacter(t *testing.T) {
	ledger, _ := newLedger()
	u := newTestUnit()

	err := ledger.AddHonour(u, domain.Honour{Category: domain.HonourCategoryRelic, Name: "The Armour Indomitus"})

	require.ErrorIs(t, err, domain.ErrCategoryViolation)
	assert.Empty(t, u.BattleHonours)
}

func TestAddHonourWeaponModValidation(t *testing.T) {
	ledger, _ := newLedger()

	tests := []struct {
		name   string
		honour domain.Honour
		ok     bool
	}{
		{
			name: "valid pair",
			honour: domain.Honour{
				Category:        domain.HonourCategoryWeaponMod,
				Name:            "Finely Balanced",
				WeaponName:      "Bolt Rifle",
				ModificationIDs: []string{"master-worked", "heirloom"},
			},
			ok: true,
		},
		{
			name: "missing weapon name",
			honour: domain.Honour{
				Category:        domain.HonourCategoryWeaponMod,
				ModificationIDs: []string{"master-worked", "heirloom"},
			},
		},
		{
			name: "single modification",
			honour: domain.Honour{
				Category:        domain.HonourCategoryWeaponMod,
				WeaponName:      "Bolt Rifle",
				ModificationIDs: []string{"master-worked"},
			},
		},
		{
			name: "duplicate modifications",
			honour: domain.Honour{
				Category:        domain.HonourCategoryWeaponMod,
				WeaponName:      "Bolt Rifle",
				ModificationIDs: []string{"heirloom", "heirloom"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newTestUnit()
			err := ledger.AddHonour(u, tt.honour)
			if tt.ok {
				require.NoError(t, err)
				assert.Len(t, u.BattleHonours, 1)
			} else {
				require.ErrorIs(t, err, domain.ErrValidation)
				assert.Empty(t, u.BattleHonours)
			}
		})
	}
}

func TestRemoveHonour(t *testing.T) {
	ledger, _ := newLedger()
	u := newTestUnit(withHonours(2), func(u *domain.Unit) { u.ExperiencePoints = 10 })
	target := u.BattleHonours[0].ID

	removed, err := ledger.RemoveHonour(u, target)

	require.NoError(t, err)
	assert.Equal(t, target, removed.ID)
	assert.Len(t, u.BattleHonours, 1)
	assert.Equal(t, 3, u.CrusadePoints)

	_, err = ledger.RemoveHonour(u, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReplaceWeaponModificationIsAtomic(t *testing.T) {
	ledger, _ := newLedger()
	u := newTestUnit()
	require.NoError(t, ledger.AddHonour(u, domain.Honour{
		Category:        domain.HonourCategoryWeaponMod,
		Name:            "Finely Balanced",
		WeaponName:      "Bolt Rifle",
		ModificationIDs: []string{"master-worked", "heirloom"},
	}))
	id := u.BattleHonours[0].ID

	err := ledger.ReplaceWeaponModification(u, id, "Plasma Pistol", []string{"armour-piercing", "armour-piercing"})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Bolt Rifle", u.BattleHonours[0].WeaponName, "failed swap changes nothing")
	assert.Equal(t, []string{"master-worked", "heirloom"}, u.BattleHonours[0].ModificationIDs)

	err = ledger.ReplaceWeaponModification(u, id, "Plasma Pistol", []string{"armour-piercing", "brutal"})
	require.NoError(t, err)
	assert.Equal(t, "Plasma Pistol", u.BattleHonours[0].WeaponName)
	assert.Equal(t, []string{"armour-piercing", "brutal"}, u.BattleHonours[0].ModificationIDs)
}
