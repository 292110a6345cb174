// Package crusade implements the progression rule engine: the Crusade
// Points and rank math, the battle-honour ledger, the Out of Action
// state machine, the requisition market and the campaign validator.
//
// Everything here is synchronous and operates on in-memory entities; the
// caller is responsible for serializing access to a campaign (each public
// operation is an atomic section, see the service layer).
package crusade

import (
	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/rules"
)

// Calculator holds the resolved rule constants for pure progression math.
type Calculator struct {
	rules rules.Rules
}

func NewCalculator(r rules.Rules) *Calculator {
	return &Calculator{rules: r}
}

// CrusadePoints derives a unit's CP:
//
//	floor(xp / 5) + honourPoints - scarPoints
//
// where TITANIC units pay double per honour. The result may be negative.
// Stored CP is never trusted; this is the only source of truth.
func (c *Calculator) CrusadePoints(u *domain.Unit) int {
	honourValue := c.rules.HonourPointValue
	if u.IsTitanic {
		honourValue *= c.rules.TitanicHonourMultiplier
	}
	xp := u.ExperiencePoints
	if xp < 0 {
		xp = 0
	}
	return xp/c.rules.XPPerCrusadePoint +
		len(u.BattleHonours)*honourValue -
		len(u.BattleScars)*c.rules.ScarPointValue
}

// Rank derives rank from an XP total, clamped to [1, MaxRank]. Never
// fails: negative XP maps to rank 1.
func (c *Calculator) Rank(xp int) int {
	rank := 1
	for i, threshold := range c.rules.RankThresholds {
		if xp >= threshold {
			rank = i + 1
		}
	}
	if rank > c.rules.MaxRank() {
		rank = c.rules.MaxRank()
	}
	return rank
}

// Refresh recomputes the unit's derived rank and CP in place.
func (c *Calculator) Refresh(u *domain.Unit) {
	u.Rank = c.Rank(u.ExperiencePoints)
	u.CrusadePoints = c.CrusadePoints(u)
}

// xpCap returns the unit's XP ceiling, or 0 when uncapped.
func (c *Calculator) xpCap(u *domain.Unit) int {
	if u.IsCharacter || u.HasLegendaryVeterans {
		return 0
	}
	return c.rules.NonCharacterXPCap
}

// addXP raises the unit's XP by amount, clamped to its cap, and
// recomputes rank (not CP; the caller batches honour selection before the
// final CP freeze). Returns the XP actually gained.
func (c *Calculator) addXP(u *domain.Unit, amount int) int {
	if amount <= 0 {
		return 0
	}
	gained := amount
	if cap := c.xpCap(u); cap > 0 && u.ExperiencePoints+gained > cap {
		gained = cap - u.ExperiencePoints
		if gained < 0 {
			gained = 0
		}
	}
	u.ExperiencePoints += gained
	u.Rank = c.Rank(u.ExperiencePoints)
	return gained
}

// AwardBattleExperience grants the participation bonus to every unit,
// unconditionally, and bumps their battle tallies.
func (c *Calculator) AwardBattleExperience(units ...*domain.Unit) {
	for _, u := range units {
		c.addXP(u, c.rules.ParticipationXP)
		u.CombatTallies.BattlesParticipated++
	}
}

// AwardEveryThirdKill grants floor(kills/3) XP from kills scored this
// battle. The caller must pass the per-battle count, not the lifetime
// tally. Returns the XP gained.
func (c *Calculator) AwardEveryThirdKill(u *domain.Unit, killsThisBattle int) int {
	if killsThisBattle < 0 {
		killsThisBattle = 0
	}
	u.CombatTallies.Kills += killsThisBattle
	return c.addXP(u, killsThisBattle/c.rules.KillsPerBonusXP)
}

// AwardMarkedForGreatness grants the flat bonus. The one-unit-per-player
// constraint is enforced by the battle record, not here. Returns the XP
// gained.
func (c *Calculator) AwardMarkedForGreatness(u *domain.Unit) int {
	return c.addXP(u, c.rules.MarkedForGreatnessXP)
}
