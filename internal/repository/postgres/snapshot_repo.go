package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dom/crusade-tracker/internal/domain"
)

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *snapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Create(ctx context.Context, snap *domain.CampaignSnapshot) error {
	return r.db.WithContext(ctx).Create(snap).Error
}

func (r *snapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CampaignSnapshot, error) {
	var snap domain.CampaignSnapshot
	err := r.db.WithContext(ctx).First(&snap, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *snapshotRepository) ListByCampaignID(ctx context.Context, campaignID uuid.UUID) ([]*domain.CampaignSnapshot, error) {
	var snaps []*domain.CampaignSnapshot
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("saved_at DESC").
		Find(&snaps).Error
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

func (r *snapshotRepository) Prune(ctx context.Context, campaignID uuid.UUID, keep int) error {
	snaps, err := r.ListByCampaignID(ctx, campaignID)
	if err != nil {
		return err
	}
	if len(snaps) <= keep {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(snaps)-keep)
	for _, snap := range snaps[keep:] {
		ids = append(ids, snap.ID)
	}
	return r.db.WithContext(ctx).Delete(&domain.CampaignSnapshot{}, "id IN ?", ids).Error
}

func (r *snapshotRepository) ListCampaignIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.CampaignSnapshot{}).
		Distinct("campaign_id").
		Pluck("campaign_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *snapshotRepository) DeleteByCampaignID(ctx context.Context, campaignID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.CampaignSnapshot{}, "campaign_id = ?", campaignID).Error
}
