package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dom/crusade-tracker/internal/crusade"
	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/snapshot"
)

// BattleService runs the battle recording workflow: a draft record
// accumulates participants, kills and out-of-action results, and
// nothing touches the roster until completion. Completion applies the
// post-battle pipeline in a fixed order: XP awards (ranks recomputed),
// then out-of-action consequences, then the CP freeze, then the seal.
type BattleService struct {
	campaigns *CampaignService
	resolver  *crusade.Resolver
}

// NewBattleService wires the resolver with the given d6 source; nil
// uses the default randomized roll.
func NewBattleService(campaigns *CampaignService, roll crusade.RollFunc) *BattleService {
	return &BattleService{
		campaigns: campaigns,
		resolver:  crusade.NewResolver(campaigns.rules, campaigns.calc, roll),
	}
}

type ParticipantInput struct {
	PlayerID uuid.UUID   `json:"playerId"`
	UnitIDs  []uuid.UUID `json:"unitIds"`
}

type StartBattleInput struct {
	Name         string             `json:"name"`
	Participants []ParticipantInput `json:"participants"`
}

func (s *BattleService) Start(ctx context.Context, campaignID uuid.UUID, input StartBattleInput) (*domain.BattleRecord, error) {
	if len(input.Participants) == 0 {
		return nil, fmt.Errorf("%w: a battle needs at least one participant", domain.ErrValidation)
	}

	var out *domain.BattleRecord
	err := s.campaigns.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign

		seen := map[uuid.UUID]bool{}
		participants := make([]domain.Participant, 0, len(input.Participants))
		for _, in := range input.Participants {
			player, ok := c.Player(in.PlayerID)
			if !ok {
				return fmt.Errorf("%w: player %s", domain.ErrNotFound, in.PlayerID)
			}
			for _, uid := range in.UnitIDs {
				u, ok := c.Unit(uid)
				if !ok {
					return fmt.Errorf("%w: unit %s", domain.ErrNotFound, uid)
				}
				if u.OwnerID != in.PlayerID {
					return fmt.Errorf("%w: unit %s is not owned by %s", domain.ErrValidation, u.Name, player.Name)
				}
				if seen[uid] {
					return fmt.Errorf("%w: unit %s fielded twice", domain.ErrValidation, u.Name)
				}
				seen[uid] = true
			}
			participants = append(participants, domain.Participant{
				PlayerID: in.PlayerID,
				UnitIDs:  append([]uuid.UUID(nil), in.UnitIDs...),
			})
		}

		b := &domain.BattleRecord{
			ID:           uuid.New(),
			Status:       domain.BattleStatusDraft,
			Name:         input.Name,
			CreatedAt:    time.Now().UTC(),
			Participants: participants,
			Kills:        map[uuid.UUID]int{},
			Destroyed:    map[uuid.UUID]*domain.OutOfActionRecord{},
		}
		c.Battles[b.ID] = b
		s.campaigns.appendEvent(c, domain.EventBattleStarted, fmt.Sprintf("battle %q started", b.Name), map[string]string{
			"battleId": b.ID.String(),
		})
		return cloneBattle(b, &out)
	})
	return out, err
}

// RecordKills sets a unit's kill tally for this battle, replacing any
// earlier value.
func (s *BattleService) RecordKills(ctx context.Context, campaignID, battleID, unitID uuid.UUID, kills int) error {
	if kills < 0 {
		return fmt.Errorf("%w: kills must not be negative", domain.ErrValidation)
	}
	return s.withDraft(ctx, campaignID, battleID, func(c *domain.Campaign, b *domain.BattleRecord) error {
		if !b.Participates(unitID) {
			return fmt.Errorf("%w: unit %s is not fielded in this battle", domain.ErrValidation, unitID)
		}
		b.Kills[unitID] = kills
		return nil
	})
}

// MarkForGreatness selects the player's one Marked for Greatness unit;
// the +3 XP lands at completion.
func (s *BattleService) MarkForGreatness(ctx context.Context, campaignID, battleID, playerID, unitID uuid.UUID) error {
	return s.withDraft(ctx, campaignID, battleID, func(c *domain.Campaign, b *domain.BattleRecord) error {
		part := b.ParticipantFor(unitID)
		if part == nil {
			return fmt.Errorf("%w: unit %s is not fielded in this battle", domain.ErrValidation, unitID)
		}
		if part.PlayerID != playerID {
			return fmt.Errorf("%w: unit %s is not fielded by player %s", domain.ErrValidation, unitID, playerID)
		}
		id := unitID
		part.MarkedForGreatness = &id
		return nil
	})
}

// RecordDestroyed marks a fielded unit as destroyed this battle,
// opening its out-of-action record.
func (s *BattleService) RecordDestroyed(ctx context.Context, campaignID, battleID, unitID uuid.UUID) error {
	return s.withDraft(ctx, campaignID, battleID, func(c *domain.Campaign, b *domain.BattleRecord) error {
		if !b.Participates(unitID) {
			return fmt.Errorf("%w: unit %s is not fielded in this battle", domain.ErrValidation, unitID)
		}
		if _, ok := b.Destroyed[unitID]; ok {
			return fmt.Errorf("%w: unit %s is already recorded as destroyed", domain.ErrValidation, unitID)
		}
		b.Destroyed[unitID] = &domain.OutOfActionRecord{
			UnitID: unitID,
			State:  domain.OutOfActionDestroyed,
		}
		u, _ := c.Unit(unitID)
		name := unitID.String()
		if u != nil {
			name = u.Name
		}
		s.campaigns.appendEvent(c, domain.EventUnitDestroyed, fmt.Sprintf("%s was destroyed", name), map[string]string{
			"battleId": battleID.String(),
			"unitId":   unitID.String(),
		})
		return nil
	})
}

// RollOutOfAction rolls the d6 test for a destroyed unit.
func (s *BattleService) RollOutOfAction(ctx context.Context, campaignID, battleID, unitID uuid.UUID) (int, error) {
	var roll int
	err := s.withDraft(ctx, campaignID, battleID, func(c *domain.Campaign, b *domain.BattleRecord) error {
		rec, ok := b.Destroyed[unitID]
		if !ok {
			return fmt.Errorf("%w: unit %s has no out-of-action record", domain.ErrNotFound, unitID)
		}
		var err error
		roll, err = s.resolver.RollTest(rec)
		if err != nil {
			return err
		}
		s.campaigns.appendEvent(c, domain.EventOutOfActionRolled,
			fmt.Sprintf("out-of-action test rolled a %d", roll), map[string]string{
				"battleId": battleID.String(),
				"unitId":   unitID.String(),
				"roll":     fmt.Sprintf("%d", roll),
				"state":    string(rec.State),
			})
		return nil
	})
	return roll, err
}

// ChooseConsequence stages the player's choice for a failed test.
func (s *BattleService) ChooseConsequence(ctx context.Context, campaignID, battleID, unitID uuid.UUID, choice domain.Consequence, scarName string) error {
	return s.withDraft(ctx, campaignID, battleID, func(c *domain.Campaign, b *domain.BattleRecord) error {
		rec, ok := b.Destroyed[unitID]
		if !ok {
			return fmt.Errorf("%w: unit %s has no out-of-action record", domain.ErrNotFound, unitID)
		}
		if err := s.resolver.Choose(rec, choice, scarName); err != nil {
			return err
		}
		s.campaigns.appendEvent(c, domain.EventOutOfActionChosen,
			fmt.Sprintf("out-of-action consequence chosen: %s", choice), map[string]string{
				"battleId": battleID.String(),
				"unitId":   unitID.String(),
				"choice":   string(choice),
			})
		return nil
	})
}

// Complete seals the battle. Every destroyed unit must have reached a
// terminal out-of-action state first.
func (s *BattleService) Complete(ctx context.Context, campaignID, battleID uuid.UUID) (*domain.BattleRecord, error) {
	var out *domain.BattleRecord
	err := s.campaigns.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		c := doc.Campaign
		b, ok := c.Battle(battleID)
		if !ok {
			return fmt.Errorf("%w: battle %s", domain.ErrNotFound, battleID)
		}
		if b.Status != domain.BattleStatusDraft {
			return fmt.Errorf("%w: battle %s is already completed", domain.ErrBattleSealed, battleID)
		}
		if b.Unresolved() {
			return fmt.Errorf("%w: battle %s has unresolved out-of-action tests", domain.ErrBattleUnresolved, battleID)
		}

		s.applyExperience(c, b)
		s.applyOutOfAction(c, b)

		// CP freeze: every surviving fielded unit gets its derived
		// fields recomputed before the record seals.
		for _, part := range b.Participants {
			for _, uid := range part.UnitIDs {
				if u, ok := c.Unit(uid); ok {
					s.campaigns.calc.Refresh(u)
				}
			}
		}

		now := time.Now().UTC()
		b.CompletedAt = &now
		b.Status = domain.BattleStatusCompleted
		s.campaigns.appendEvent(c, domain.EventBattleCompleted, fmt.Sprintf("battle %q completed", b.Name), map[string]string{
			"battleId": battleID.String(),
		})

		if err := s.campaigns.coordinator.Save(ctx, *doc); err != nil {
			return err
		}
		return cloneBattle(b, &out)
	})
	return out, err
}

// Discard drops a draft record. Nothing has touched the roster yet, so
// there is nothing to roll back.
func (s *BattleService) Discard(ctx context.Context, campaignID, battleID uuid.UUID) error {
	return s.withDraft(ctx, campaignID, battleID, func(c *domain.Campaign, b *domain.BattleRecord) error {
		delete(c.Battles, battleID)
		s.campaigns.appendEvent(c, domain.EventBattleDiscarded, fmt.Sprintf("battle %q discarded", b.Name), map[string]string{
			"battleId": battleID.String(),
		})
		return nil
	})
}

func (s *BattleService) applyExperience(c *domain.Campaign, b *domain.BattleRecord) {
	calc := s.campaigns.calc
	for _, part := range b.Participants {
		for _, uid := range part.UnitIDs {
			u, ok := c.Unit(uid)
			if !ok {
				continue
			}
			rankBefore := u.Rank

			calc.AwardBattleExperience(u)
			b.XPAwards = append(b.XPAwards, domain.XPAward{
				UnitID: uid, Category: domain.XPCategoryParticipation, Amount: s.campaigns.rules.ParticipationXP,
			})
			if kills := b.Kills[uid]; kills > 0 {
				if gained := calc.AwardEveryThirdKill(u, kills); gained > 0 {
					b.XPAwards = append(b.XPAwards, domain.XPAward{
						UnitID: uid, Category: domain.XPCategoryKills, Amount: gained,
					})
				}
			}
			if part.MarkedForGreatness != nil && *part.MarkedForGreatness == uid {
				if gained := calc.AwardMarkedForGreatness(u); gained > 0 {
					b.XPAwards = append(b.XPAwards, domain.XPAward{
						UnitID: uid, Category: domain.XPCategoryGreatness, Amount: gained,
					})
				}
			}

			if u.Rank > rankBefore {
				s.campaigns.appendEvent(c, domain.EventRankGained,
					fmt.Sprintf("%s reached rank %d", u.Name, u.Rank), map[string]string{
						"unitId": uid.String(),
						"rank":   fmt.Sprintf("%d", u.Rank),
					})
			}
		}
	}
}

func (s *BattleService) applyOutOfAction(c *domain.Campaign, b *domain.BattleRecord) {
	// Map order is random; apply in a stable order so event logs and
	// honour removals are reproducible.
	ids := make([]uuid.UUID, 0, len(b.Destroyed))
	for uid := range b.Destroyed {
		ids = append(ids, uid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, uid := range ids {
		rec := b.Destroyed[uid]
		if rec.State != domain.OutOfActionConsequenceChosen || rec.Applied {
			continue
		}
		u, ok := c.Unit(uid)
		if !ok {
			continue
		}
		res, err := s.resolver.Apply(u, rec)
		if err != nil {
			continue
		}
		switch {
		case res.UnitDestroyed:
			name := u.Name
			c.RemoveUnit(uid)
			s.campaigns.appendEvent(c, domain.EventUnitRemoved,
				fmt.Sprintf("%s was destroyed beyond recovery", name), map[string]string{
					"battleId": b.ID.String(),
					"unitId":   uid.String(),
				})
		case res.RemovedHonour != nil:
			s.campaigns.appendEvent(c, domain.EventHonourRemoved,
				fmt.Sprintf("%s lost %q to a devastating blow", u.Name, res.RemovedHonour.Name), map[string]string{
					"battleId": b.ID.String(),
					"unitId":   uid.String(),
					"honourId": res.RemovedHonour.ID.String(),
				})
		case res.ScarAdded != nil:
			s.campaigns.appendEvent(c, domain.EventScarAdded,
				fmt.Sprintf("%s suffered %q", u.Name, res.ScarAdded.Name), map[string]string{
					"battleId": b.ID.String(),
					"unitId":   uid.String(),
					"scarId":   res.ScarAdded.ID.String(),
				})
		}
	}
}

func (s *BattleService) withDraft(ctx context.Context, campaignID, battleID uuid.UUID, fn func(c *domain.Campaign, b *domain.BattleRecord) error) error {
	return s.campaigns.withCampaign(ctx, campaignID, func(doc *snapshot.Document) error {
		b, ok := doc.Campaign.Battle(battleID)
		if !ok {
			return fmt.Errorf("%w: battle %s", domain.ErrNotFound, battleID)
		}
		if b.Status != domain.BattleStatusDraft {
			return fmt.Errorf("%w: battle %s is already completed", domain.ErrBattleSealed, battleID)
		}
		return fn(doc.Campaign, b)
	})
}

func cloneBattle(b *domain.BattleRecord, out **domain.BattleRecord) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	var c domain.BattleRecord
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	*out = &c
	return nil
}
