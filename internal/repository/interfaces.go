package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/dom/crusade-tracker/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type SnapshotRepository interface {
	Create(ctx context.Context, snap *domain.CampaignSnapshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CampaignSnapshot, error)
	// ListByCampaignID returns snapshots newest first.
	ListByCampaignID(ctx context.Context, campaignID uuid.UUID) ([]*domain.CampaignSnapshot, error)
	// Prune deletes all but the newest keep snapshots of a campaign.
	Prune(ctx context.Context, campaignID uuid.UUID, keep int) error
	// ListCampaignIDs returns every campaign with at least one snapshot.
	ListCampaignIDs(ctx context.Context) ([]uuid.UUID, error)
	DeleteByCampaignID(ctx context.Context, campaignID uuid.UUID) error
}

type Repositories struct {
	User     UserRepository
	Session  SessionRepository
	Snapshot SnapshotRepository
}
