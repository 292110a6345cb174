package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/snapshot"
)

// UnitInput is the normalized record the engine accepts from any
// external roster importer. Parsing importer-specific formats is the
// importer's job; the engine only validates the normalized shape.
type UnitInput struct {
	Name       string   `json:"name"`
	Datasheet  string   `json:"datasheet"`
	Role       string   `json:"role"`
	PointsCost int      `json:"pointsCost"`
	Keywords   []string `json:"keywords"`

	IsCharacter          bool `json:"isCharacter"`
	IsTitanic            bool `json:"isTitanic"`
	IsEpicHero           bool `json:"isEpicHero"`
	IsBattleline         bool `json:"isBattleline"`
	IsDedicatedTransport bool `json:"isDedicatedTransport"`
	IsUnderstrength      bool `json:"isUnderstrength"`

	Notes string `json:"notes"`
}

func (in UnitInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: unit name is required", domain.ErrValidation)
	}
	if in.PointsCost < 0 {
		return fmt.Errorf("%w: points cost must not be negative", domain.ErrValidation)
	}
	return nil
}

// ImportError ties a rejected record to its position in the batch.
type ImportError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportResult reports a batch import: accepted units plus a per-record
// error list. A batch is never all-or-nothing; valid records land even
// when neighbours fail.
type ImportResult struct {
	Units  []*domain.Unit `json:"units"`
	Errors []ImportError  `json:"errors"`
}

func (s *CampaignService) ImportUnits(ctx context.Context, campaignID, playerID uuid.UUID, records []UnitInput) (ImportResult, error) {
	var result ImportResult
	err := s.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		if _, ok := c.Player(playerID); !ok {
			return fmt.Errorf("%w: player %s", domain.ErrNotFound, playerID)
		}

		for i, rec := range records {
			u, err := s.addUnit(c, playerID, rec)
			if err != nil {
				result.Errors = append(result.Errors, ImportError{Index: i, Reason: err.Error()})
				continue
			}
			result.Units = append(result.Units, cloneUnit(u))
		}

		if len(result.Units) > 0 {
			s.appendEvent(c, domain.EventUnitImported,
				fmt.Sprintf("imported %d of %d units", len(result.Units), len(records)),
				map[string]string{
					"playerId": playerID.String(),
					"accepted": fmt.Sprintf("%d", len(result.Units)),
					"rejected": fmt.Sprintf("%d", len(result.Errors)),
				})
		}
		return nil
	})
	return result, err
}
