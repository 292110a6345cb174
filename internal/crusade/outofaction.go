package crusade

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/rules"
)

// RollFunc produces a d6 result in [1,6]. Tests inject deterministic
// rolls; production uses a seeded source.
type RollFunc func() int

// Resolver walks a destroyed unit through the Out of Action state
// machine:
//
//	Destroyed -> TestPending -> {Survived, ConsequenceChosen}
//
// A roll of 1 fails the test and forces a choice between Devastating
// Blow and Battle Scar; 2-6 survive with no further effect. Rolling and
// choosing only mutate the record; Apply lands the effect on the unit
// when the battle's post-processing runs.
type Resolver struct {
	rules rules.Rules
	calc  *Calculator
	roll  RollFunc
}

func NewResolver(r rules.Rules, calc *Calculator, roll RollFunc) *Resolver {
	if roll == nil {
		roll = func() int { return rand.Intn(6) + 1 }
	}
	return &Resolver{rules: r, calc: calc, roll: roll}
}

// RollTest rolls the Out of Action test for a destroyed unit and
// advances the record.
func (r *Resolver) RollTest(rec *domain.OutOfActionRecord) (int, error) {
	if rec.State != domain.OutOfActionDestroyed {
		return 0, fmt.Errorf("%w: out-of-action test already rolled for unit %s", domain.ErrValidation, rec.UnitID)
	}
	roll := r.roll()
	rec.Roll = roll
	if roll == 1 {
		rec.State = domain.OutOfActionTestPending
	} else {
		rec.State = domain.OutOfActionSurvived
	}
	return roll, nil
}

// Choose stages the player's consequence for a failed test. Nothing
// touches the unit yet.
func (r *Resolver) Choose(rec *domain.OutOfActionRecord, choice domain.Consequence, scarName string) error {
	if rec.State != domain.OutOfActionTestPending {
		return fmt.Errorf("%w: unit %s has no pending out-of-action choice", domain.ErrValidation, rec.UnitID)
	}
	switch choice {
	case domain.ConsequenceBattleScar, domain.ConsequenceDevastatingBlow:
	default:
		return fmt.Errorf("%w: unknown consequence %q", domain.ErrValidation, choice)
	}
	rec.Consequence = choice
	rec.ScarName = scarName
	rec.State = domain.OutOfActionConsequenceChosen
	return nil
}

// Resolution reports what an applied consequence did to the unit.
type Resolution struct {
	Consequence   domain.Consequence
	Escalated     bool
	RemovedHonour *domain.Honour
	ScarAdded     *domain.Scar
	UnitDestroyed bool
}

// Apply lands the staged consequence on the unit.
//
// A staged BattleScar against a unit already at the scar cap is
// converted to a forced DevastatingBlow. A DevastatingBlow strips the
// most recent honour; with no honours to strip, the unit is permanently
// destroyed and the caller must remove it from the roster.
func (r *Resolver) Apply(u *domain.Unit, rec *domain.OutOfActionRecord) (Resolution, error) {
	if rec.State != domain.OutOfActionConsequenceChosen {
		return Resolution{}, fmt.Errorf("%w: unit %s has no chosen consequence to apply", domain.ErrValidation, rec.UnitID)
	}
	if rec.Applied {
		return Resolution{}, fmt.Errorf("%w: consequence for unit %s already applied", domain.ErrValidation, rec.UnitID)
	}

	res := Resolution{Consequence: rec.Consequence}
	switch rec.Consequence {
	case domain.ConsequenceBattleScar:
		if len(u.BattleScars) >= r.rules.ScarLimit {
			// Scar cap escalation: the fourth scar is never applied.
			res.Consequence = domain.ConsequenceDevastatingBlow
			res.Escalated = true
			rec.Escalated = true
			rec.Consequence = domain.ConsequenceDevastatingBlow
			r.applyDevastatingBlow(u, rec, &res)
		} else {
			name := rec.ScarName
			if name == "" {
				name = "Battle Scar"
			}
			scar := domain.Scar{ID: uuid.New(), Name: name}
			u.BattleScars = append(u.BattleScars, scar)
			r.calc.Refresh(u)
			rec.ScarID = &scar.ID
			res.ScarAdded = &scar
		}
	case domain.ConsequenceDevastatingBlow:
		r.applyDevastatingBlow(u, rec, &res)
	default:
		return Resolution{}, fmt.Errorf("%w: unknown consequence %q", domain.ErrValidation, rec.Consequence)
	}

	rec.Applied = true
	return res, nil
}

func (r *Resolver) applyDevastatingBlow(u *domain.Unit, rec *domain.OutOfActionRecord, res *Resolution) {
	if len(u.BattleHonours) == 0 {
		rec.UnitRemoved = true
		res.UnitDestroyed = true
		return
	}
	removed := u.BattleHonours[len(u.BattleHonours)-1]
	u.BattleHonours = u.BattleHonours[:len(u.BattleHonours)-1]
	r.calc.Refresh(u)
	rec.RemovedHonourID = &removed.ID
	res.RemovedHonour = &removed
}
