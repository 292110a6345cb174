package crusade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/rules"
)

func newMarket() *Market {
	r := rules.Default()
	calc := NewCalculator(r)
	return NewMarket(r, calc, NewLedger(r, calc))
}

func newTestCampaign(t *testing.T, rp int) (*domain.Campaign, *domain.Player) {
	t.Helper()
	c := domain.NewCampaign("Vigilus Ablaze", uuid.New(), domain.CampaignConfig{Edition: "9th", SupplyLimit: 1000})
	p := &domain.Player{
		ID:                uuid.New(),
		Name:              "Dominic",
		Faction:           "Ultramarines",
		RequisitionPoints: rp,
		SupplyLimit:       1000,
	}
	c.Players[p.ID] = p
	return c, p
}

func addRosterUnit(t *testing.T, c *domain.Campaign, p *domain.Player, opts ...func(*domain.Unit)) *domain.Unit {
	t.Helper()
	u := newTestUnit(opts...)
	u.OwnerID = p.ID
	require.NoError(t, c.AddUnit(u))
	return u
}

func TestRenownedHeroesVariableCost(t *testing.T) {
	market := newMarket()
	c, p := newTestCampaign(t, 2)
	for i := 0; i < 2; i++ {
		addRosterUnit(t, c, p, func(u *domain.Unit) { u.HasEnhancement = true })
	}
	captain := addRosterUnit(t, c, p, func(u *domain.Unit) { u.IsCharacter = true })

	req := PurchaseRequest{Type: RequisitionRenownedHeroes, PlayerID: p.ID, UnitID: &captain.ID}

	cost, err := market.Cost(c, req)
	require.NoError(t, err)
	assert.Equal(t, 3, cost, "two roster enhancements raise the price to min(1+2,3)")

	_, err = market.Buy(c, req)
	require.ErrorIs(t, err, domain.ErrInsufficientRP)
	assert.Equal(t, 2, p.RequisitionPoints, "rejected purchase deducts nothing")
	assert.False(t, captain.HasEnhancement)
	assert.Empty(t, c.EventLog)
}

func TestRenownedHeroesPurchase(t *testing.T) {
	market := newMarket()
	c, p := newTestCampaign(t, 5)
	captain := addRosterUnit(t, c, p, func(u *domain.Unit) { u.IsCharacter = true })

	got, err := market.Buy(c, PurchaseRequest{Type: RequisitionRenownedHeroes, PlayerID: p.ID, UnitID: &captain.ID})

	require.NoError(t, err)
	assert.Equal(t, 1, got.Cost)
	assert.Equal(t, 4, got.RemainingRP)
	assert.True(t, captain.HasEnhancement)
	require.Len(t, c.EventLog, 1)
	assert.Equal(t, domain.EventRequisitionPurchased, c.EventLog[0].Type)

	_, err = market.Buy(c, PurchaseRequest{Type: RequisitionRenownedHeroes, PlayerID: p.ID, UnitID: &captain.ID})
	assert.ErrorIs(t, err, domain.ErrValidation, "a unit cannot carry a second enhancement")
}

func TestRepairAndRecuperate(t *testing.T) {
	market := newMarket()
	c, p := newTestCampaign(t, 10)
	u := addRosterUnit(t, c, p, withHonours(2), withScars(2))
	target := u.BattleScars[1].ID

	cost, err := market.Cost(c, PurchaseRequest{Type: RequisitionRepairAndRecuperate, PlayerID: p.ID, UnitID: &u.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, cost, "two honours on the unit price repair at min(1+2,5)")

	got, err := market.Buy(c, PurchaseRequest{
		Type:     RequisitionRepairAndRecuperate,
		PlayerID: p.ID,
		UnitID:   &u.ID,
		ScarID:   &target,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, got.Cost)
	require.Len(t, u.BattleScars, 1)
	assert.Equal(t, -1, u.ScarIndex(target))
	assert.Equal(t, 1, u.CrusadePoints, "removing the scar restores a crusade point")
}

func TestRepairRequiresAScar(t *testing.T) {
	market := newMarket()
	c, p := newTestCampaign(t, 10)
	u := addRosterUnit(t, c, p)

	_, err := market.Buy(c, PurchaseRequest{Type: RequisitionRepairAndRecuperate, PlayerID: p.ID, UnitID: &u.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 10, p.RequisitionPoints)
}

func TestFreshRecruits(t *testing.T) {
	market := newMarket()
	c, p := newTestCampaign(t, 10)
	u := addRosterUnit(t, c, p, withHonours(3), func(u *domain.Unit) { u.IsUnderstrength = true })

	cost, err := market.Cost(c, PurchaseRequest{Type: RequisitionFreshRecruits, PlayerID: p.ID, UnitID: &u.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, cost, "three honours price fresh recruits at min(1+ceil(3/2),4)")

	_, err = market.Buy(c, PurchaseRequest{Type: RequisitionFreshRecruits, PlayerID: p.ID, UnitID: &u.ID})
	require.NoError(t, err)
	assert.False(t, u.IsUnderstrength)

	captain := addRosterUnit(t, c, p, func(u *domain.Unit) {
		u.IsCharacter = true
		u.IsUnderstrength = true
	})
	_, err = market.Buy(c, PurchaseRequest{Type: RequisitionFreshRecruits, PlayerID: p.ID, UnitID: &captain.ID})
	assert.ErrorIs(t, err, domain.ErrCategoryViolation)
}

func TestLegendaryVeteransRequiresXPThreshold(t *testing.T) {
	market := newMarket()
	c, p := newTestCampaign(t, 10)
	green := addRosterUnit(t, c, p, func(u *domain.Unit) { u.ExperiencePoints = 29 })
	veteran := addRosterUnit(t, c, p, func(u *domain.Unit) { u.ExperiencePoints = 30 })

	_, err := market.Buy(c, PurchaseRequest{Type: RequisitionLegendaryVeterans, PlayerID: p.ID, UnitID: &green.ID})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 10, p.RequisitionPoints)

	got, err := market.Buy(c, PurchaseRequest{Type: RequisitionLegendaryVeterans, PlayerID: p.ID, UnitID: &veteran.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Cost)
	assert.True(t, veteran.HasLegendaryVeterans)
	assert.Equal(t, 7, p.RequisitionPoints)
}

func TestIncreaseSupplyLimit(t *testing.T) {
	market := newMarket()
	c, p := newTestCampaign(t, 1)

	got, err := market.Buy(c, PurchaseRequest{Type: RequisitionIncreaseSupplyLimit, PlayerID: p.ID})

	require.NoError(t, err)
	assert.Equal(t, 1, got.Cost)
	assert.Equal(t, 1200, p.SupplyLimit)
	assert.Equal(t, 0, p.RequisitionPoints)
}

func TestRearmAndResupplySwapsPair(t *testing.T) {
	market := newMarket()
	c, p := newTestCampaign(t, 5)
	u := addRosterUnit(t, c, p)
	ledger := NewLedger(rules.Default(), NewCalculator(rules.Default()))
	require.NoError(t, ledger.AddHonour(u, domain.Honour{
		Category:        domain.HonourCategoryWeaponMod,
		Name:            "Finely Balanced",
		WeaponName:      "Bolt Rifle",
		ModificationIDs: []string{"master-worked", "heirloom"},
	}))
	id := u.BattleHonours[0].ID

	_, err := market.Buy(c, PurchaseRequest{
		Type:            RequisitionRearmAndResupply,
		PlayerID:        p.ID,
		UnitID:          &u.ID,
		HonourID:        &id,
		ModificationIDs: []string{"armour-piercing", "brutal"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"armour-piercing", "brutal"}, u.BattleHonours[0].ModificationIDs)
	assert.Equal(t, 4, p.RequisitionPoints)
}

func TestBuyUnownedUnitRejected(t *testing.T) {
	market := newMarket()
	c, p := newTestCampaign(t, 10)
	other := &domain.Player{ID: uuid.New(), Name: "Rival", RequisitionPoints: 5}
	c.Players[other.ID] = other
	u := addRosterUnit(t, c, other, withScars(1))

	_, err := market.Buy(c, PurchaseRequest{Type: RequisitionRepairAndRecuperate, PlayerID: p.ID, UnitID: &u.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
