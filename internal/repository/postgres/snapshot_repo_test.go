package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/repository/postgres"
	"github.com/dom/crusade-tracker/internal/testutil"
)

func seedSnapshots(t *testing.T, db *gorm.DB, campaignID uuid.UUID, n int) []*domain.CampaignSnapshot {
	t.Helper()

	repo := postgres.NewSnapshotRepository(db)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snaps := make([]*domain.CampaignSnapshot, 0, n)
	for i := 0; i < n; i++ {
		snap := &domain.CampaignSnapshot{
			ID:         uuid.New(),
			CampaignID: campaignID,
			SavedAt:    base.Add(time.Duration(i) * time.Minute),
			Document:   datatypes.JSON(fmt.Sprintf(`{"version":2,"seq":%d}`, i)),
		}
		require.NoError(t, repo.Create(context.Background(), snap))
		snaps = append(snaps, snap)
	}
	return snaps
}

func TestSnapshotRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewSnapshotRepository(testDB.DB)
	ctx := context.Background()

	snap := &domain.CampaignSnapshot{
		ID:         uuid.New(),
		CampaignID: uuid.New(),
		SavedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Document:   datatypes.JSON(`{"version":2}`),
	}
	require.NoError(t, repo.Create(ctx, snap))

	got, err := repo.GetByID(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.CampaignID, got.CampaignID)
	assert.JSONEq(t, `{"version":2}`, string(got.Document))

	_, err = repo.GetByID(ctx, uuid.New())
	assert.Error(t, err)
}

func TestSnapshotRepository_ListNewestFirst(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewSnapshotRepository(testDB.DB)
	ctx := context.Background()

	campaignID := uuid.New()
	snaps := seedSnapshots(t, testDB.DB, campaignID, 4)
	seedSnapshots(t, testDB.DB, uuid.New(), 2) // another campaign, must not leak

	got, err := repo.ListByCampaignID(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, snap := range got {
		assert.Equal(t, snaps[len(snaps)-1-i].ID, snap.ID)
	}
}

func TestSnapshotRepository_PruneKeepsNewest(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewSnapshotRepository(testDB.DB)
	ctx := context.Background()

	campaignID := uuid.New()
	snaps := seedSnapshots(t, testDB.DB, campaignID, 5)

	require.NoError(t, repo.Prune(ctx, campaignID, 2))

	got, err := repo.ListByCampaignID(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, snaps[4].ID, got[0].ID)
	assert.Equal(t, snaps[3].ID, got[1].ID)

	// Pruning below the current count is a no-op.
	require.NoError(t, repo.Prune(ctx, campaignID, 10))
	got, err = repo.ListByCampaignID(ctx, campaignID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSnapshotRepository_ListCampaignIDs(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewSnapshotRepository(testDB.DB)
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	seedSnapshots(t, testDB.DB, first, 3)
	seedSnapshots(t, testDB.DB, second, 1)

	ids, err := repo.ListCampaignIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{first, second}, ids)
}

func TestSnapshotRepository_DeleteByCampaignID(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewSnapshotRepository(testDB.DB)
	ctx := context.Background()

	doomed, kept := uuid.New(), uuid.New()
	seedSnapshots(t, testDB.DB, doomed, 3)
	seedSnapshots(t, testDB.DB, kept, 2)

	require.NoError(t, repo.DeleteByCampaignID(ctx, doomed))

	got, err := repo.ListByCampaignID(ctx, doomed)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.ListByCampaignID(ctx, kept)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
