package crusade

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/rules"
)

// Issue is one finding of a validation pass, tied to the entity it
// concerns.
type Issue struct {
	Code     string    `json:"code"`
	EntityID uuid.UUID `json:"entityId"`
	Message  string    `json:"message"`
}

// Report is the outcome of a full-graph validation walk. Errors block
// use of the campaign, warnings do not, and AutoFixed records the
// corrections the validator applied itself.
type Report struct {
	Errors    []Issue `json:"errors"`
	Warnings  []Issue `json:"warnings"`
	AutoFixed []Issue `json:"autoFixed"`
}

// Clean reports whether the campaign passed with no hard errors.
func (r Report) Clean() bool { return len(r.Errors) == 0 }

// Validator walks the whole campaign graph and reports inconsistencies
// instead of failing on the first one. Beyond the documented auto-fixes
// it never mutates; two consecutive runs with no intervening mutation
// produce identical reports, and once a run applies no fixes the
// campaign is at a fixed point.
type Validator struct {
	rules rules.Rules
	calc  *Calculator
}

func NewValidator(r rules.Rules, calc *Calculator) *Validator {
	return &Validator{rules: r, calc: calc}
}

// Validate runs the full pass. Map iteration order is randomized, so
// every issue list is sorted before return to keep reports
// deterministic.
func (v *Validator) Validate(c *domain.Campaign) Report {
	var rep Report

	for id, p := range c.Players {
		v.checkPlayer(c, id, p, &rep)
	}
	for id, u := range c.Units {
		v.checkUnit(c, id, u, &rep)
	}
	for id, b := range c.Battles {
		v.checkBattle(c, id, b, &rep)
	}

	for _, issues := range []*[]Issue{&rep.Errors, &rep.Warnings, &rep.AutoFixed} {
		sort.Slice(*issues, func(i, j int) bool {
			a, b := (*issues)[i], (*issues)[j]
			if a.Code != b.Code {
				return a.Code < b.Code
			}
			if a.EntityID != b.EntityID {
				return a.EntityID.String() < b.EntityID.String()
			}
			return a.Message < b.Message
		})
	}
	return rep
}

func (v *Validator) checkPlayer(c *domain.Campaign, id uuid.UUID, p *domain.Player, rep *Report) {
	if p.RequisitionPoints < 0 {
		p.RequisitionPoints = 0
		rep.AutoFixed = append(rep.AutoFixed, Issue{
			Code: "player.rp_clamped", EntityID: id,
			Message: fmt.Sprintf("requisition points of %s clamped to 0", p.Name),
		})
	}
	if p.SupplyLimit < 0 {
		p.SupplyLimit = 0
		rep.AutoFixed = append(rep.AutoFixed, Issue{
			Code: "player.supply_limit_clamped", EntityID: id,
			Message: fmt.Sprintf("supply limit of %s clamped to 0", p.Name),
		})
	}
	for _, uid := range p.UnitOrder {
		if _, ok := c.Units[uid]; !ok {
			rep.Errors = append(rep.Errors, Issue{
				Code: "player.dangling_unit", EntityID: id,
				Message: fmt.Sprintf("roster of %s references missing unit %s", p.Name, uid),
			})
		}
	}
	if used := c.SupplyUsed(id); used > p.SupplyLimit {
		rep.Warnings = append(rep.Warnings, Issue{
			Code: "player.supply_exceeded", EntityID: id,
			Message: fmt.Sprintf("%s uses %d points of a %d supply limit", p.Name, used, p.SupplyLimit),
		})
	}
}

func (v *Validator) checkUnit(c *domain.Campaign, id uuid.UUID, u *domain.Unit, rep *Report) {
	if _, ok := c.Players[u.OwnerID]; !ok {
		rep.Errors = append(rep.Errors, Issue{
			Code: "unit.dangling_owner", EntityID: id,
			Message: fmt.Sprintf("unit %s belongs to missing player %s", u.Name, u.OwnerID),
		})
	}
	if u.ExperiencePoints < 0 {
		rep.Errors = append(rep.Errors, Issue{
			Code: "unit.negative_xp", EntityID: id,
			Message: fmt.Sprintf("unit %s has negative experience %d", u.Name, u.ExperiencePoints),
		})
	}
	if u.CombatTallies.Kills < 0 || u.CombatTallies.BattlesParticipated < 0 {
		rep.Errors = append(rep.Errors, Issue{
			Code: "unit.negative_tally", EntityID: id,
			Message: fmt.Sprintf("unit %s has negative combat tallies", u.Name),
		})
	}

	// Hand-edited data may exceed the design caps; flag, never truncate.
	if cap := v.rules.HonourLimit(u.IsCharacter, u.HasLegendaryVeterans); len(u.BattleHonours) > cap {
		rep.Warnings = append(rep.Warnings, Issue{
			Code: "unit.honours_above_cap", EntityID: id,
			Message: fmt.Sprintf("unit %s has %d battle honours (cap %d)", u.Name, len(u.BattleHonours), cap),
		})
	}
	if len(u.BattleScars) > v.rules.ScarLimit {
		rep.Warnings = append(rep.Warnings, Issue{
			Code: "unit.scars_above_cap", EntityID: id,
			Message: fmt.Sprintf("unit %s has %d battle scars (cap %d)", u.Name, len(u.BattleScars), v.rules.ScarLimit),
		})
	}
	if !u.IsCharacter && !u.HasLegendaryVeterans && u.ExperiencePoints > v.rules.NonCharacterXPCap {
		rep.Warnings = append(rep.Warnings, Issue{
			Code: "unit.xp_above_cap", EntityID: id,
			Message: fmt.Sprintf("unit %s has %d XP over the %d cap", u.Name, u.ExperiencePoints, v.rules.NonCharacterXPCap),
		})
	}
	if !u.IsCharacter {
		for _, h := range u.BattleHonours {
			if h.Category == domain.HonourCategoryRelic {
				rep.Warnings = append(rep.Warnings, Issue{
					Code: "unit.relic_on_non_character", EntityID: id,
					Message: fmt.Sprintf("unit %s carries relic %q without the CHARACTER keyword", u.Name, h.Name),
				})
			}
		}
	}

	// Derived fields are never trusted; stale rank or CP is corrected in
	// place and reported.
	if wantRank, wantCP := v.calc.Rank(u.ExperiencePoints), v.calc.CrusadePoints(u); u.Rank != wantRank || u.CrusadePoints != wantCP {
		u.Rank = wantRank
		u.CrusadePoints = wantCP
		rep.AutoFixed = append(rep.AutoFixed, Issue{
			Code: "unit.derived_recomputed", EntityID: id,
			Message: fmt.Sprintf("rank and crusade points of %s recomputed", u.Name),
		})
	}
}

func (v *Validator) checkBattle(c *domain.Campaign, id uuid.UUID, b *domain.BattleRecord, rep *Report) {
	for _, part := range b.Participants {
		if _, ok := c.Players[part.PlayerID]; !ok {
			rep.Errors = append(rep.Errors, Issue{
				Code: "battle.dangling_player", EntityID: id,
				Message: fmt.Sprintf("battle %s references missing player %s", id, part.PlayerID),
			})
		}
		// Completed battles are history: their units may have been
		// legitimately destroyed since. Only drafts must resolve.
		if b.Status != domain.BattleStatusDraft {
			continue
		}
		for _, uid := range part.UnitIDs {
			if _, ok := c.Units[uid]; !ok {
				rep.Errors = append(rep.Errors, Issue{
					Code: "battle.dangling_unit", EntityID: id,
					Message: fmt.Sprintf("draft battle %s references missing unit %s", id, uid),
				})
			}
		}
	}
	for uid, kills := range b.Kills {
		if kills < 0 {
			rep.Errors = append(rep.Errors, Issue{
				Code: "battle.negative_kills", EntityID: id,
				Message: fmt.Sprintf("battle %s records %d kills for unit %s", id, kills, uid),
			})
		}
	}
	if b.Status == domain.BattleStatusCompleted && b.Unresolved() {
		rep.Errors = append(rep.Errors, Issue{
			Code: "battle.unresolved_completed", EntityID: id,
			Message: fmt.Sprintf("completed battle %s has unresolved out-of-action tests", id),
		})
	}
}
