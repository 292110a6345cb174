package snapshot

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ref identifies one stored snapshot of a campaign.
type Ref struct {
	CampaignID uuid.UUID
	SavedAt    time.Time

	// Key is store-specific: a file name for the filesystem store, a
	// row id for the database store.
	Key string
}

// Store is the persistence port for raw snapshot documents. The
// coordinator owns encoding, validation and the retention policy;
// stores only move bytes.
type Store interface {
	// Write persists one snapshot document.
	Write(ctx context.Context, campaignID uuid.UUID, savedAt time.Time, data []byte) error

	// List returns the campaign's snapshots, newest first.
	List(ctx context.Context, campaignID uuid.UUID) ([]Ref, error)

	// Read loads the document behind a ref.
	Read(ctx context.Context, ref Ref) ([]byte, error)

	// Prune deletes all but the newest keep snapshots.
	Prune(ctx context.Context, campaignID uuid.UUID, keep int) error

	// Campaigns returns every campaign with at least one snapshot.
	Campaigns(ctx context.Context) ([]uuid.UUID, error)

	// Delete removes all of a campaign's snapshots.
	Delete(ctx context.Context, campaignID uuid.UUID) error
}
