package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/crusade-tracker/internal/domain"
)

func newTestBattleService(t *testing.T, rolls ...int) (*BattleService, *CampaignService) {
	t.Helper()
	campaigns := newTestCampaignService(t)
	i := 0
	roll := func() int {
		v := rolls[i]
		i++
		return v
	}
	return NewBattleService(campaigns, roll), campaigns
}

type battleFixture struct {
	campaignID uuid.UUID
	player     *domain.Player
	squad      *domain.Unit
	captain    *domain.Unit
}

func setupBattleFixture(t *testing.T, campaigns *CampaignService) battleFixture {
	t.Helper()
	c := mustCreateCampaign(t, campaigns)
	p := mustAddPlayer(t, campaigns, c.ID, "Dominic")
	squad := mustAddUnit(t, campaigns, c.ID, p.ID, UnitInput{Name: "Intercessor Squad", PointsCost: 100})
	captain := mustAddUnit(t, campaigns, c.ID, p.ID, UnitInput{Name: "Captain Sicarius", PointsCost: 90, IsCharacter: true})
	return battleFixture{campaignID: c.ID, player: p, squad: squad, captain: captain}
}

func startBattle(t *testing.T, s *BattleService, fx battleFixture) *domain.BattleRecord {
	t.Helper()
	b, err := s.Start(context.Background(), fx.campaignID, StartBattleInput{
		Name: "Assault on Hive Arkos",
		Participants: []ParticipantInput{
			{PlayerID: fx.player.ID, UnitIDs: []uuid.UUID{fx.squad.ID, fx.captain.ID}},
		},
	})
	require.NoError(t, err)
	return b
}

func TestStartBattleValidation(t *testing.T) {
	s, campaigns := newTestBattleService(t, 6)
	fx := setupBattleFixture(t, campaigns)
	ctx := context.Background()

	_, err := s.Start(ctx, fx.campaignID, StartBattleInput{Name: "Empty"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Start(ctx, fx.campaignID, StartBattleInput{
		Name:         "Ghost Player",
		Participants: []ParticipantInput{{PlayerID: uuid.New()}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Start(ctx, fx.campaignID, StartBattleInput{
		Name: "Duplicate Unit",
		Participants: []ParticipantInput{
			{PlayerID: fx.player.ID, UnitIDs: []uuid.UUID{fx.squad.ID, fx.squad.ID}},
		},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCompleteAppliesPipeline(t *testing.T) {
	s, campaigns := newTestBattleService(t, 4)
	fx := setupBattleFixture(t, campaigns)
	ctx := context.Background()
	b := startBattle(t, s, fx)

	require.NoError(t, s.RecordKills(ctx, fx.campaignID, b.ID, fx.squad.ID, 7))
	require.NoError(t, s.MarkForGreatness(ctx, fx.campaignID, b.ID, fx.player.ID, fx.captain.ID))
	require.NoError(t, s.RecordDestroyed(ctx, fx.campaignID, b.ID, fx.squad.ID))
	roll, err := s.RollOutOfAction(ctx, fx.campaignID, b.ID, fx.squad.ID)
	require.NoError(t, err)
	require.Equal(t, 4, roll)

	sealed, err := s.Complete(ctx, fx.campaignID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BattleStatusCompleted, sealed.Status)
	require.NotNil(t, sealed.CompletedAt)

	c, err := campaigns.Get(ctx, fx.campaignID)
	require.NoError(t, err)

	squad := c.Units[fx.squad.ID]
	assert.Equal(t, 3, squad.ExperiencePoints, "1 participation + floor(7/3) kills")
	assert.Equal(t, 7, squad.CombatTallies.Kills)
	assert.Equal(t, 1, squad.CombatTallies.BattlesParticipated)
	assert.Empty(t, squad.BattleScars, "a surviving unit takes no scar")

	captain := c.Units[fx.captain.ID]
	assert.Equal(t, 4, captain.ExperiencePoints, "1 participation + 3 marked for greatness")
	assert.Equal(t, 1, captain.Rank)

	require.Len(t, sealed.XPAwards, 4)
	assert.Equal(t, domain.XPCategoryParticipation, sealed.XPAwards[0].Category)
	assert.Equal(t, domain.XPCategoryKills, sealed.XPAwards[1].Category)
	assert.Equal(t, domain.XPCategoryParticipation, sealed.XPAwards[2].Category)
	assert.Equal(t, domain.XPCategoryGreatness, sealed.XPAwards[3].Category)
}

func TestCompleteRefusesUnresolvedOutOfAction(t *testing.T) {
	s, campaigns := newTestBattleService(t, 1)
	fx := setupBattleFixture(t, campaigns)
	ctx := context.Background()
	b := startBattle(t, s, fx)

	require.NoError(t, s.RecordDestroyed(ctx, fx.campaignID, b.ID, fx.squad.ID))
	_, err := s.Complete(ctx, fx.campaignID, b.ID)
	assert.ErrorIs(t, err, domain.ErrBattleUnresolved, "an unrolled test blocks completion")

	_, err = s.RollOutOfAction(ctx, fx.campaignID, b.ID, fx.squad.ID)
	require.NoError(t, err)
	_, err = s.Complete(ctx, fx.campaignID, b.ID)
	assert.ErrorIs(t, err, domain.ErrBattleUnresolved, "a pending choice blocks completion")

	require.NoError(t, s.ChooseConsequence(ctx, fx.campaignID, b.ID, fx.squad.ID, domain.ConsequenceBattleScar, "Battle-weary"))
	_, err = s.Complete(ctx, fx.campaignID, b.ID)
	require.NoError(t, err)

	c, err := campaigns.Get(ctx, fx.campaignID)
	require.NoError(t, err)
	squad := c.Units[fx.squad.ID]
	require.Len(t, squad.BattleScars, 1, "the staged scar lands at completion")
	assert.Equal(t, "Battle-weary", squad.BattleScars[0].Name)
}

func TestHonourlessDevastatingBlowRemovesUnit(t *testing.T) {
	s, campaigns := newTestBattleService(t, 1)
	fx := setupBattleFixture(t, campaigns)
	ctx := context.Background()
	b := startBattle(t, s, fx)

	require.NoError(t, s.RecordDestroyed(ctx, fx.campaignID, b.ID, fx.squad.ID))
	_, err := s.RollOutOfAction(ctx, fx.campaignID, b.ID, fx.squad.ID)
	require.NoError(t, err)
	require.NoError(t, s.ChooseConsequence(ctx, fx.campaignID, b.ID, fx.squad.ID, domain.ConsequenceDevastatingBlow, ""))

	_, err = s.Complete(ctx, fx.campaignID, b.ID)
	require.NoError(t, err)

	c, err := campaigns.Get(ctx, fx.campaignID)
	require.NoError(t, err)
	assert.NotContains(t, c.Units, fx.squad.ID, "a blow with no honour to strip destroys the unit permanently")
	assert.NotContains(t, c.Players[fx.player.ID].UnitOrder, fx.squad.ID)

	rec := c.Battles[b.ID].Destroyed[fx.squad.ID]
	require.NotNil(t, rec)
	assert.True(t, rec.UnitRemoved)
}

func TestDiscardLeavesRosterUntouched(t *testing.T) {
	s, campaigns := newTestBattleService(t, 1)
	fx := setupBattleFixture(t, campaigns)
	ctx := context.Background()
	b := startBattle(t, s, fx)

	require.NoError(t, s.RecordKills(ctx, fx.campaignID, b.ID, fx.squad.ID, 9))
	require.NoError(t, s.RecordDestroyed(ctx, fx.campaignID, b.ID, fx.squad.ID))
	_, err := s.RollOutOfAction(ctx, fx.campaignID, b.ID, fx.squad.ID)
	require.NoError(t, err)
	require.NoError(t, s.ChooseConsequence(ctx, fx.campaignID, b.ID, fx.squad.ID, domain.ConsequenceBattleScar, "Almost"))

	require.NoError(t, s.Discard(ctx, fx.campaignID, b.ID))

	c, err := campaigns.Get(ctx, fx.campaignID)
	require.NoError(t, err)
	assert.NotContains(t, c.Battles, b.ID)
	squad := c.Units[fx.squad.ID]
	assert.Equal(t, 0, squad.ExperiencePoints)
	assert.Empty(t, squad.BattleScars)
	assert.Equal(t, 0, squad.CombatTallies.Kills)
}

func TestSealedBattleRejectsMutation(t *testing.T) {
	s, campaigns := newTestBattleService(t, 6)
	fx := setupBattleFixture(t, campaigns)
	ctx := context.Background()
	b := startBattle(t, s, fx)

	_, err := s.Complete(ctx, fx.campaignID, b.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, s.RecordKills(ctx, fx.campaignID, b.ID, fx.squad.ID, 3), domain.ErrBattleSealed)
	assert.ErrorIs(t, s.Discard(ctx, fx.campaignID, b.ID), domain.ErrBattleSealed)
	_, err = s.Complete(ctx, fx.campaignID, b.ID)
	assert.ErrorIs(t, err, domain.ErrBattleSealed)
}
