package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/repository"
)

// DBStore backs the snapshot ring with the campaign_snapshots table, so
// deployments with a database need no shared filesystem.
type DBStore struct {
	repo repository.SnapshotRepository
}

func NewDBStore(repo repository.SnapshotRepository) *DBStore {
	return &DBStore{repo: repo}
}

func (s *DBStore) Write(ctx context.Context, campaignID uuid.UUID, savedAt time.Time, data []byte) error {
	return s.repo.Create(ctx, &domain.CampaignSnapshot{
		CampaignID: campaignID,
		SavedAt:    savedAt,
		Document:   datatypes.JSON(data),
	})
}

func (s *DBStore) List(ctx context.Context, campaignID uuid.UUID) ([]Ref, error) {
	snaps, err := s.repo.ListByCampaignID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	refs := make([]Ref, 0, len(snaps))
	for _, snap := range snaps {
		refs = append(refs, Ref{
			CampaignID: snap.CampaignID,
			SavedAt:    snap.SavedAt,
			Key:        snap.ID.String(),
		})
	}
	return refs, nil
}

func (s *DBStore) Read(ctx context.Context, ref Ref) ([]byte, error) {
	id, err := uuid.Parse(ref.Key)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot key %q: %w", ref.Key, err)
	}
	snap, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return []byte(snap.Document), nil
}

func (s *DBStore) Prune(ctx context.Context, campaignID uuid.UUID, keep int) error {
	return s.repo.Prune(ctx, campaignID, keep)
}

func (s *DBStore) Campaigns(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListCampaignIDs(ctx)
}

func (s *DBStore) Delete(ctx context.Context, campaignID uuid.UUID) error {
	return s.repo.DeleteByCampaignID(ctx, campaignID)
}
