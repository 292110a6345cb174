package rules

import (
	"encoding/json"
	"fmt"
	"os"
)

// Rules holds every edition-tunable constant used by the progression
// engine. A Rules value is resolved once at startup and injected into the
// calculators; formulas never read constants from anywhere else.
type Rules struct {
	// RankThresholds are the minimum XP totals for ranks 1..5.
	RankThresholds []int `json:"rankThresholds"`

	// NonCharacterXPCap caps XP on non-CHARACTER units without the
	// Legendary Veterans upgrade.
	NonCharacterXPCap int `json:"nonCharacterXpCap"`

	ScarLimit           int `json:"scarLimit"`
	HonourLimitElite    int `json:"honourLimitElite"`    // CHARACTER or Legendary Veterans
	HonourLimitStandard int `json:"honourLimitStandard"` // everyone else

	// Crusade Points formula: floor(xp/XPPerCrusadePoint) + honours - scars.
	XPPerCrusadePoint       int `json:"xpPerCrusadePoint"`
	HonourPointValue        int `json:"honourPointValue"`
	TitanicHonourMultiplier int `json:"titanicHonourMultiplier"`
	ScarPointValue          int `json:"scarPointValue"`

	// XP awards
	ParticipationXP      int `json:"participationXp"`
	KillsPerBonusXP      int `json:"killsPerBonusXp"`
	MarkedForGreatnessXP int `json:"markedForGreatnessXp"`

	// Requisition effects
	SupplyLimitIncrease int `json:"supplyLimitIncrease"`
	LegendaryVeteransXP int `json:"legendaryVeteransXp"` // XP threshold to buy the upgrade

	// StartingRequisitionPoints is each player's RP pool on joining.
	StartingRequisitionPoints int `json:"startingRequisitionPoints"`

	// EventLogLimit bounds the campaign event log; oldest entries are
	// trimmed beyond it.
	EventLogLimit int `json:"eventLogLimit"`

	Requisitions RequisitionCosts `json:"requisitions"`
}

// RequisitionCosts holds RP cost parameters. The three variable-cost
// requisitions are priced from roster state at purchase time; Base and
// Max bound those formulas.
type RequisitionCosts struct {
	IncreaseSupplyLimit int `json:"increaseSupplyLimit"`
	RearmAndResupply    int `json:"rearmAndResupply"`
	LegendaryVeterans   int `json:"legendaryVeterans"`

	RenownedHeroesBase int `json:"renownedHeroesBase"`
	RenownedHeroesMax  int `json:"renownedHeroesMax"`
	RepairBase         int `json:"repairBase"`
	RepairMax          int `json:"repairMax"`
	FreshRecruitsBase  int `json:"freshRecruitsBase"`
	FreshRecruitsMax   int `json:"freshRecruitsMax"`
}

// Default returns the 9th-edition Crusade constants.
func Default() Rules {
	return Rules{
		RankThresholds:            []int{0, 6, 12, 18, 24},
		NonCharacterXPCap:         30,
		ScarLimit:                 3,
		HonourLimitElite:          6,
		HonourLimitStandard:       3,
		XPPerCrusadePoint:         5,
		HonourPointValue:          1,
		TitanicHonourMultiplier:   2,
		ScarPointValue:            1,
		ParticipationXP:           1,
		KillsPerBonusXP:           3,
		MarkedForGreatnessXP:      3,
		SupplyLimitIncrease:       200,
		LegendaryVeteransXP:       30,
		StartingRequisitionPoints: 5,
		EventLogLimit:             500,
		Requisitions: RequisitionCosts{
			IncreaseSupplyLimit: 1,
			RearmAndResupply:    1,
			LegendaryVeterans:   3,
			RenownedHeroesBase:  1,
			RenownedHeroesMax:   3,
			RepairBase:          1,
			RepairMax:           5,
			FreshRecruitsBase:   1,
			FreshRecruitsMax:    4,
		},
	}
}

// Load resolves the rule set: defaults, with the JSON file at path (if
// any) merged over them. Fields absent from the file keep their defaults.
func Load(path string) (Rules, error) {
	r := Default()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules file: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// Validate rejects rule sets the formulas cannot work with.
func (r Rules) Validate() error {
	if len(r.RankThresholds) == 0 {
		return fmt.Errorf("rules: rankThresholds must not be empty")
	}
	for i := 1; i < len(r.RankThresholds); i++ {
		if r.RankThresholds[i] <= r.RankThresholds[i-1] {
			return fmt.Errorf("rules: rankThresholds must be strictly increasing")
		}
	}
	if r.XPPerCrusadePoint < 1 {
		return fmt.Errorf("rules: xpPerCrusadePoint must be positive")
	}
	if r.KillsPerBonusXP < 1 {
		return fmt.Errorf("rules: killsPerBonusXp must be positive")
	}
	if r.ScarLimit < 1 {
		return fmt.Errorf("rules: scarLimit must be positive")
	}
	if r.HonourLimitElite < r.HonourLimitStandard {
		return fmt.Errorf("rules: honourLimitElite must be at least honourLimitStandard")
	}
	return nil
}

// HonourLimit returns the battle-honour cap for a unit with the given
// traits.
func (r Rules) HonourLimit(isCharacter, legendaryVeterans bool) int {
	if isCharacter || legendaryVeterans {
		return r.HonourLimitElite
	}
	return r.HonourLimitStandard
}

// MaxRank is the highest attainable rank.
func (r Rules) MaxRank() int {
	return len(r.RankThresholds)
}
