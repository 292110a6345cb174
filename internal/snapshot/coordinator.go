package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dom/crusade-tracker/internal/crusade"
	"github.com/dom/crusade-tracker/internal/domain"
)

// Coordinator owns the save/load cycle: encoding, the retention ring,
// and progressive fallback recovery. Saves are a snapshot of the
// in-memory state at call time, not a transaction boundary; callers
// finish a logical operation before triggering one.
type Coordinator struct {
	store     Store
	validator *crusade.Validator
	retention int
	log       *logrus.Logger
}

func NewCoordinator(store Store, validator *crusade.Validator, retention int, log *logrus.Logger) *Coordinator {
	if retention < 1 {
		retention = 1
	}
	return &Coordinator{store: store, validator: validator, retention: retention, log: log}
}

// Save encodes the document, appends it to the campaign's snapshot ring
// and evicts beyond the retention limit.
func (co *Coordinator) Save(ctx context.Context, doc Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	savedAt := time.Now().UTC()
	if err := co.store.Write(ctx, doc.Campaign.ID, savedAt, data); err != nil {
		return err
	}
	if err := co.store.Prune(ctx, doc.Campaign.ID, co.retention); err != nil {
		return err
	}
	co.log.WithFields(logrus.Fields{
		"campaign_id": doc.Campaign.ID,
		"bytes":       len(data),
	}).Debug("snapshot saved")
	return nil
}

// Load restores the newest usable snapshot. A snapshot is unusable when
// it fails to decode or the validator reports hard errors; the
// coordinator then falls back to progressively older snapshots until
// one validates or the ring is exhausted, which is terminal
// ErrRecoveryFailed.
func (co *Coordinator) Load(ctx context.Context, campaignID uuid.UUID) (Document, crusade.Report, error) {
	refs, err := co.store.List(ctx, campaignID)
	if err != nil {
		return Document{}, crusade.Report{}, err
	}
	if len(refs) == 0 {
		return Document{}, crusade.Report{}, fmt.Errorf("%w: no snapshots for campaign %s", domain.ErrNotFound, campaignID)
	}

	for i, ref := range refs {
		doc, rep, err := co.tryLoad(ctx, ref)
		if err != nil {
			co.log.WithFields(logrus.Fields{
				"campaign_id": campaignID,
				"snapshot":    ref.Key,
				"fallback":    i,
			}).WithError(err).Warn("snapshot unusable, falling back")
			continue
		}
		if i > 0 {
			co.log.WithFields(logrus.Fields{
				"campaign_id": campaignID,
				"snapshot":    ref.Key,
				"skipped":     i,
			}).Warn("recovered campaign from older snapshot")
		}
		return doc, rep, nil
	}

	return Document{}, crusade.Report{}, fmt.Errorf(
		"%w: all %d snapshots of campaign %s are unusable", domain.ErrRecoveryFailed, len(refs), campaignID)
}

// Campaigns lists every campaign the store has snapshots for.
func (co *Coordinator) Campaigns(ctx context.Context) ([]uuid.UUID, error) {
	return co.store.Campaigns(ctx)
}

// Delete drops the campaign's entire snapshot ring.
func (co *Coordinator) Delete(ctx context.Context, campaignID uuid.UUID) error {
	if err := co.store.Delete(ctx, campaignID); err != nil {
		return err
	}
	co.log.WithField("campaign_id", campaignID).Info("campaign snapshots deleted")
	return nil
}

func (co *Coordinator) tryLoad(ctx context.Context, ref Ref) (Document, crusade.Report, error) {
	data, err := co.store.Read(ctx, ref)
	if err != nil {
		return Document{}, crusade.Report{}, err
	}
	doc, err := Decode(data)
	if err != nil {
		return Document{}, crusade.Report{}, err
	}
	rep := co.validator.Validate(doc.Campaign)
	if !rep.Clean() {
		return Document{}, crusade.Report{}, fmt.Errorf(
			"%w: snapshot fails validation with %d errors", domain.ErrCorruptSnapshot, len(rep.Errors))
	}
	return doc, rep, nil
}
