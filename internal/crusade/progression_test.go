package crusade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/rules"
)

func newTestUnit(opts ...func(*domain.Unit)) *domain.Unit {
	u := &domain.Unit{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Name:    "Intercessor Squad",
		Rank:    1,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func withHonours(n int) func(*domain.Unit) {
	return func(u *domain.Unit) {
		for i := 0; i < n; i++ {
			u.BattleHonours = append(u.BattleHonours, domain.Honour{
				ID:       uuid.New(),
				Category: domain.HonourCategoryTrait,
				Name:     "Battle Trait",
			})
		}
	}
}

func withScars(n int) func(*domain.Unit) {
	return func(u *domain.Unit) {
		for i := 0; i < n; i++ {
			u.BattleScars = append(u.BattleScars, domain.Scar{ID: uuid.New(), Name: "Crippling Damage"})
		}
	}
}

func TestCalculatorCrusadePoints(t *testing.T) {
	calc := NewCalculator(rules.Default())

	tests := []struct {
		name string
		unit *domain.Unit
		want int
	}{
		{
			name: "xp only",
			unit: newTestUnit(func(u *domain.Unit) { u.ExperiencePoints = 12 }),
			want: 2,
		},
		{
			name: "two traits one scar at seven xp",
			unit: newTestUnit(withHonours(2), withScars(1), func(u *domain.Unit) { u.ExperiencePoints = 7 }),
			want: 2,
		},
		{
			name: "titanic pays double per honour",
			unit: newTestUnit(withHonours(2), func(u *domain.Unit) { u.IsTitanic = true }),
			want: 4,
		},
		{
			name: "scars can drive cp negative",
			unit: newTestUnit(withScars(3)),
			want: -3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc.CrusadePoints(tt.unit))
		})
	}
}

func TestCalculatorRank(t *testing.T) {
	calc := NewCalculator(rules.Default())

	tests := []struct {
		xp   int
		want int
	}{
		{xp: -5, want: 1},
		{xp: 0, want: 1},
		{xp: 5, want: 1},
		{xp: 6, want: 2},
		{xp: 7, want: 2},
		{xp: 12, want: 3},
		{xp: 18, want: 4},
		{xp: 24, want: 5},
		{xp: 100, want: 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calc.Rank(tt.xp), "xp=%d", tt.xp)
	}
}

func TestAwardBattleExperienceRespectsCap(t *testing.T) {
	calc := NewCalculator(rules.Default())

	squad := newTestUnit(func(u *domain.Unit) { u.ExperiencePoints = 30 })
	captain := newTestUnit(func(u *domain.Unit) {
		u.IsCharacter = true
		u.ExperiencePoints = 30
	})
	veterans := newTestUnit(func(u *domain.Unit) {
		u.HasLegendaryVeterans = true
		u.ExperiencePoints = 30
	})

	calc.AwardBattleExperience(squad, captain, veterans)

	assert.Equal(t, 30, squad.ExperiencePoints, "non-character stays capped")
	assert.Equal(t, 31, captain.ExperiencePoints)
	assert.Equal(t, 31, veterans.ExperiencePoints)
	assert.Equal(t, 1, squad.CombatTallies.BattlesParticipated)
}

func TestAwardEveryThirdKill(t *testing.T) {
	calc := NewCalculator(rules.Default())

	u := newTestUnit()
	u.CombatTallies.Kills = 10

	gained := calc.AwardEveryThirdKill(u, 7)

	require.Equal(t, 2, gained)
	assert.Equal(t, 2, u.ExperiencePoints)
	assert.Equal(t, 17, u.CombatTallies.Kills, "lifetime tally accumulates the per-battle count")
}

func TestAwardXPClampsToCapBoundary(t *testing.T) {
	calc := NewCalculator(rules.Default())

	u := newTestUnit(func(u *domain.Unit) { u.ExperiencePoints = 29 })
	gained := calc.AwardMarkedForGreatness(u)

	assert.Equal(t, 1, gained, "only the headroom below the cap is granted")
	assert.Equal(t, 30, u.ExperiencePoints)
	assert.Equal(t, 5, u.Rank)
}
