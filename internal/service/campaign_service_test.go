package service

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/crusade-tracker/internal/crusade"
	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/rules"
	"github.com/dom/crusade-tracker/internal/snapshot"
)

func newTestCampaignService(t *testing.T) *CampaignService {
	t.Helper()
	store, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	r := rules.Default()
	coordinator := snapshot.NewCoordinator(store, crusade.NewValidator(r, crusade.NewCalculator(r)), 10, log)
	return NewCampaignService(r, coordinator, nopSink{}, log)
}

func mustCreateCampaign(t *testing.T, s *CampaignService) *domain.Campaign {
	t.Helper()
	c, err := s.Create(context.Background(), CreateCampaignInput{
		Name:        "Nachmund Gauntlet",
		OwnerID:     uuid.New(),
		Edition:     "9th",
		SupplyLimit: 1000,
	})
	require.NoError(t, err)
	return c
}

func mustAddPlayer(t *testing.T, s *CampaignService, campaignID uuid.UUID, name string) *domain.Player {
	t.Helper()
	p, err := s.AddPlayer(context.Background(), campaignID, AddPlayerInput{Name: name, Faction: "Ultramarines"})
	require.NoError(t, err)
	return p
}

func mustAddUnit(t *testing.T, s *CampaignService, campaignID, playerID uuid.UUID, input UnitInput) *domain.Unit {
	t.Helper()
	u, err := s.AddUnit(context.Background(), campaignID, playerID, input)
	require.NoError(t, err)
	return u
}

func TestCreateAndGetCampaign(t *testing.T) {
	s := newTestCampaignService(t)
	created := mustCreateCampaign(t, s)

	got, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nachmund Gauntlet", got.Name)
	assert.Equal(t, 1000, got.Config.SupplyLimit)
	require.Len(t, got.EventLog, 1)
	assert.Equal(t, domain.EventCampaignCreated, got.EventLog[0].Type)

	// Mutating the returned copy does not leak into the registry.
	got.Name = "Hijacked"
	again, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nachmund Gauntlet", again.Name)
}

func TestCreateCampaignValidation(t *testing.T) {
	s := newTestCampaignService(t)

	_, err := s.Create(context.Background(), CreateCampaignInput{OwnerID: uuid.New(), SupplyLimit: 1000})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Create(context.Background(), CreateCampaignInput{Name: "No Supply", OwnerID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAddPlayerStartingResources(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)

	p := mustAddPlayer(t, s, c.ID, "Dominic")

	assert.Equal(t, 5, p.RequisitionPoints)
	assert.Equal(t, 1000, p.SupplyLimit, "supply limit starts at the campaign setting")
}

func TestAddAndRemoveUnit(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)
	p := mustAddPlayer(t, s, c.ID, "Dominic")

	u := mustAddUnit(t, s, c.ID, p.ID, UnitInput{Name: "Intercessor Squad", PointsCost: 100})
	assert.Equal(t, 1, u.Rank)
	assert.Equal(t, 0, u.CrusadePoints)

	got, err := s.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Contains(t, got.Units, u.ID)
	assert.Equal(t, []uuid.UUID{u.ID}, got.Players[p.ID].UnitOrder)

	require.NoError(t, s.RemoveUnit(context.Background(), c.ID, u.ID))
	got, err = s.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.NotContains(t, got.Units, u.ID)
	assert.Empty(t, got.Players[p.ID].UnitOrder)
}

func TestListCampaignsByOwner(t *testing.T) {
	s := newTestCampaignService(t)
	owner, rival := uuid.New(), uuid.New()

	for _, name := range []string{"Nachmund Gauntlet", "Octarius Front"} {
		_, err := s.Create(context.Background(), CreateCampaignInput{
			Name: name, OwnerID: owner, Edition: "9th", SupplyLimit: 1000,
		})
		require.NoError(t, err)
	}
	_, err := s.Create(context.Background(), CreateCampaignInput{
		Name: "Rival Crusade", OwnerID: rival, Edition: "9th", SupplyLimit: 500,
	})
	require.NoError(t, err)

	got, err := s.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Nachmund Gauntlet", got[0].Name)
	assert.Equal(t, "Octarius Front", got[1].Name)

	got, err = s.List(context.Background(), rival)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rival Crusade", got[0].Name)
}

func TestDeleteCampaignDropsSnapshots(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)

	require.NoError(t, s.Delete(context.Background(), c.ID))

	_, err := s.Get(context.Background(), c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateUnitNameAndNotes(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)
	p := mustAddPlayer(t, s, c.ID, "Dominic")
	u := mustAddUnit(t, s, c.ID, p.ID, UnitInput{Name: "Intercessor Squad", PointsCost: 100})

	name, notes := "Veteran Intercessors", "Survivors of Arkos"
	got, err := s.UpdateUnit(context.Background(), c.ID, u.ID, UpdateUnitInput{Name: &name, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "Veteran Intercessors", got.Name)
	assert.Equal(t, "Survivors of Arkos", got.Notes)

	empty := ""
	_, err = s.UpdateUnit(context.Background(), c.ID, u.ID, UpdateUnitInput{Name: &empty})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestQuoteLeavesCampaignUntouched(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)
	p := mustAddPlayer(t, s, c.ID, "Dominic")

	quote, err := s.Quote(context.Background(), c.ID, crusade.PurchaseRequest{
		Type:     crusade.RequisitionIncreaseSupplyLimit,
		PlayerID: p.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, quote.Cost)
	assert.True(t, quote.Affordable)

	campaign, err := s.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, campaign.Players[p.ID].RequisitionPoints)
	assert.Equal(t, 1000, campaign.Players[p.ID].SupplyLimit)
}

func TestAddUnitUnknownPlayer(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)

	_, err := s.AddUnit(context.Background(), c.ID, uuid.New(), UnitInput{Name: "Orphan Squad"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportUnitsCollectsPerRecordErrors(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)
	p := mustAddPlayer(t, s, c.ID, "Dominic")

	result, err := s.ImportUnits(context.Background(), c.ID, p.ID, []UnitInput{
		{Name: "Intercessor Squad", PointsCost: 100},
		{PointsCost: 50},
		{Name: "Broken Cost", PointsCost: -10},
		{Name: "Chaplain", PointsCost: 85, IsCharacter: true},
	})

	require.NoError(t, err)
	require.Len(t, result.Units, 2)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, 2, result.Errors[1].Index)

	got, err := s.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Units, 2, "valid records land even when neighbours fail")
}

func TestAddHonourThroughService(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)
	p := mustAddPlayer(t, s, c.ID, "Dominic")
	u := mustAddUnit(t, s, c.ID, p.ID, UnitInput{Name: "Intercessor Squad", PointsCost: 100})

	for i := 0; i < 3; i++ {
		_, err := s.AddHonour(context.Background(), c.ID, u.ID, HonourInput{
			Category: domain.HonourCategoryTrait,
			Name:     "Battle Trait",
		})
		require.NoError(t, err)
	}

	_, err := s.AddHonour(context.Background(), c.ID, u.ID, HonourInput{
		Category: domain.HonourCategoryTrait,
		Name:     "One Too Many",
	})
	assert.ErrorIs(t, err, domain.ErrCapExceeded)
}

func TestPurchaseThroughService(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)
	p := mustAddPlayer(t, s, c.ID, "Dominic")

	got, err := s.Purchase(context.Background(), c.ID, crusade.PurchaseRequest{
		Type:     crusade.RequisitionIncreaseSupplyLimit,
		PlayerID: p.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, got.Cost)
	assert.Equal(t, 4, got.RemainingRP)

	campaign, err := s.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1200, campaign.Players[p.ID].SupplyLimit)
	last := campaign.EventLog[len(campaign.EventLog)-1]
	assert.Equal(t, domain.EventRequisitionPurchased, last.Type)
}

func TestSaveAndRecover(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)
	p := mustAddPlayer(t, s, c.ID, "Dominic")
	u := mustAddUnit(t, s, c.ID, p.ID, UnitInput{Name: "Intercessor Squad", PointsCost: 100})

	require.NoError(t, s.Save(context.Background(), c.ID))

	recovered, rep, err := s.Recover(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, rep.Clean())
	require.Contains(t, recovered.Units, u.ID)
	assert.Equal(t, "Intercessor Squad", recovered.Units[u.ID].Name)
	assert.Equal(t, 5, recovered.Players[p.ID].RequisitionPoints)
}

func TestEventLogLimitQuery(t *testing.T) {
	s := newTestCampaignService(t)
	c := mustCreateCampaign(t, s)
	mustAddPlayer(t, s, c.ID, "One")
	mustAddPlayer(t, s, c.ID, "Two")
	mustAddPlayer(t, s, c.ID, "Three")

	events, err := s.EventLog(context.Background(), c.ID, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventPlayerJoined, events[0].Type)
	assert.Contains(t, events[1].Description, "Three")
}
