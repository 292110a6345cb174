package crusade

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/rules"
)

// RequisitionType enumerates the six purchasable requisitions.
type RequisitionType string

const (
	RequisitionIncreaseSupplyLimit RequisitionType = "increase_supply_limit"
	RequisitionRearmAndResupply    RequisitionType = "rearm_and_resupply"
	RequisitionRenownedHeroes      RequisitionType = "renowned_heroes"
	RequisitionRepairAndRecuperate RequisitionType = "repair_and_recuperate"
	RequisitionFreshRecruits       RequisitionType = "fresh_recruits"
	RequisitionLegendaryVeterans   RequisitionType = "legendary_veterans"
)

// PurchaseRequest names a requisition and its target. Unit-scoped
// requisitions require UnitID; the rest of the fields feed specific
// effects (scar to repair, replacement weapon-mod pair).
type PurchaseRequest struct {
	Type     RequisitionType
	PlayerID uuid.UUID
	UnitID   *uuid.UUID

	// Repair & Recuperate: scar to remove. Defaults to the oldest.
	ScarID *uuid.UUID

	// Rearm & Resupply: the weapon-mod honour to rework and its
	// replacement pair.
	HonourID        *uuid.UUID
	WeaponName      string
	ModificationIDs []string
}

// Purchase reports a completed requisition.
type Purchase struct {
	Type        RequisitionType
	Cost        int
	RemainingRP int
	Description string
}

// Market resolves requisition costs from live roster state and applies
// purchases. Cost resolution, affordability and eligibility checks
// (steps 1-3) never mutate; any rejection leaves the campaign
// untouched.
type Market struct {
	rules  rules.Rules
	calc   *Calculator
	ledger *Ledger
}

func NewMarket(r rules.Rules, calc *Calculator, ledger *Ledger) *Market {
	return &Market{rules: r, calc: calc, ledger: ledger}
}

// Cost resolves the current price of a requisition without purchasing.
// Variable-cost requisitions are priced from roster state at call time,
// never cached.
func (m *Market) Cost(c *domain.Campaign, req PurchaseRequest) (int, error) {
	costs := m.rules.Requisitions
	switch req.Type {
	case RequisitionIncreaseSupplyLimit:
		return costs.IncreaseSupplyLimit, nil
	case RequisitionRearmAndResupply:
		return costs.RearmAndResupply, nil
	case RequisitionLegendaryVeterans:
		return costs.LegendaryVeterans, nil
	case RequisitionRenownedHeroes:
		return capCost(costs.RenownedHeroesBase+c.EnhancementCount(req.PlayerID), costs.RenownedHeroesMax), nil
	case RequisitionRepairAndRecuperate:
		u, err := m.targetUnit(c, req)
		if err != nil {
			return 0, err
		}
		return capCost(costs.RepairBase+len(u.BattleHonours), costs.RepairMax), nil
	case RequisitionFreshRecruits:
		u, err := m.targetUnit(c, req)
		if err != nil {
			return 0, err
		}
		return capCost(costs.FreshRecruitsBase+ceilDiv(len(u.BattleHonours), 2), costs.FreshRecruitsMax), nil
	default:
		return 0, fmt.Errorf("%w: unknown requisition type %q", domain.ErrValidation, req.Type)
	}
}

// Buy runs the purchase protocol: resolve cost, check the player's RP
// pool, validate eligibility, apply the effect, deduct and log.
func (m *Market) Buy(c *domain.Campaign, req PurchaseRequest) (Purchase, error) {
	player, ok := c.Player(req.PlayerID)
	if !ok {
		return Purchase{}, fmt.Errorf("%w: player %s", domain.ErrNotFound, req.PlayerID)
	}

	cost, err := m.Cost(c, req)
	if err != nil {
		return Purchase{}, err
	}
	if player.RequisitionPoints < cost {
		return Purchase{}, fmt.Errorf("%w: %s costs %d RP, player %s has %d",
			domain.ErrInsufficientRP, req.Type, cost, player.Name, player.RequisitionPoints)
	}

	desc, err := m.apply(c, player, req)
	if err != nil {
		return Purchase{}, err
	}

	player.RequisitionPoints -= cost
	c.AppendEvent(domain.EventRequisitionPurchased, desc, map[string]string{
		"playerId":    player.ID.String(),
		"requisition": string(req.Type),
		"cost":        fmt.Sprintf("%d", cost),
	}, m.rules.EventLogLimit)

	return Purchase{
		Type:        req.Type,
		Cost:        cost,
		RemainingRP: player.RequisitionPoints,
		Description: desc,
	}, nil
}

// apply validates eligibility and applies the effect. Validation inside
// each branch happens before the first mutation.
func (m *Market) apply(c *domain.Campaign, player *domain.Player, req PurchaseRequest) (string, error) {
	switch req.Type {
	case RequisitionIncreaseSupplyLimit:
		player.SupplyLimit += m.rules.SupplyLimitIncrease
		return fmt.Sprintf("%s increased supply limit to %d", player.Name, player.SupplyLimit), nil

	case RequisitionRearmAndResupply:
		u, err := m.targetUnit(c, req)
		if err != nil {
			return "", err
		}
		if req.HonourID == nil {
			return "", fmt.Errorf("%w: rearm & resupply requires the honour to rework", domain.ErrValidation)
		}
		if err := m.ledger.ReplaceWeaponModification(u, *req.HonourID, req.WeaponName, req.ModificationIDs); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s reworked weapon modifications on %s", player.Name, u.Name), nil

	case RequisitionRenownedHeroes:
		u, err := m.targetUnit(c, req)
		if err != nil {
			return "", err
		}
		if !u.IsCharacter {
			return "", fmt.Errorf("%w: renowned heroes requires a CHARACTER, %s is not one", domain.ErrCategoryViolation, u.Name)
		}
		if u.HasEnhancement {
			return "", fmt.Errorf("%w: %s already carries an enhancement", domain.ErrValidation, u.Name)
		}
		u.HasEnhancement = true
		return fmt.Sprintf("%s bought an enhancement for %s", player.Name, u.Name), nil

	case RequisitionRepairAndRecuperate:
		u, err := m.targetUnit(c, req)
		if err != nil {
			return "", err
		}
		if len(u.BattleScars) == 0 {
			return "", fmt.Errorf("%w: %s has no battle scars to repair", domain.ErrValidation, u.Name)
		}
		i := 0
		if req.ScarID != nil {
			if i = u.ScarIndex(*req.ScarID); i < 0 {
				return "", fmt.Errorf("%w: scar %s on %s", domain.ErrNotFound, *req.ScarID, u.Name)
			}
		}
		scar := u.RemoveScarAt(i)
		m.calc.Refresh(u)
		return fmt.Sprintf("%s repaired %q on %s", player.Name, scar.Name, u.Name), nil

	case RequisitionFreshRecruits:
		u, err := m.targetUnit(c, req)
		if err != nil {
			return "", err
		}
		if u.IsCharacter {
			return "", fmt.Errorf("%w: fresh recruits cannot target a CHARACTER", domain.ErrCategoryViolation)
		}
		if !u.IsUnderstrength {
			return "", fmt.Errorf("%w: %s is already at full strength", domain.ErrValidation, u.Name)
		}
		u.IsUnderstrength = false
		return fmt.Sprintf("%s brought %s back to full strength", player.Name, u.Name), nil

	case RequisitionLegendaryVeterans:
		u, err := m.targetUnit(c, req)
		if err != nil {
			return "", err
		}
		if u.IsCharacter {
			return "", fmt.Errorf("%w: legendary veterans cannot target a CHARACTER", domain.ErrCategoryViolation)
		}
		if u.HasLegendaryVeterans {
			return "", fmt.Errorf("%w: %s already has legendary veterans", domain.ErrValidation, u.Name)
		}
		if u.ExperiencePoints < m.rules.LegendaryVeteransXP {
			return "", fmt.Errorf("%w: legendary veterans requires %d XP, %s has %d",
				domain.ErrValidation, m.rules.LegendaryVeteransXP, u.Name, u.ExperiencePoints)
		}
		u.HasLegendaryVeterans = true
		c.AppendEvent(domain.EventLegendaryGained,
			fmt.Sprintf("%s became legendary veterans", u.Name),
			map[string]string{"unitId": u.ID.String()}, m.rules.EventLogLimit)
		return fmt.Sprintf("%s uncapped %s as legendary veterans", player.Name, u.Name), nil

	default:
		return "", fmt.Errorf("%w: unknown requisition type %q", domain.ErrValidation, req.Type)
	}
}

// targetUnit resolves the unit-scoped target and checks ownership.
func (m *Market) targetUnit(c *domain.Campaign, req PurchaseRequest) (*domain.Unit, error) {
	if req.UnitID == nil {
		return nil, fmt.Errorf("%w: requisition %s requires a target unit", domain.ErrValidation, req.Type)
	}
	u, ok := c.Unit(*req.UnitID)
	if !ok {
		return nil, fmt.Errorf("%w: unit %s", domain.ErrNotFound, *req.UnitID)
	}
	if u.OwnerID != req.PlayerID {
		return nil, fmt.Errorf("%w: unit %s is not owned by player %s", domain.ErrValidation, u.Name, req.PlayerID)
	}
	return u, nil
}

func capCost(cost, max int) int {
	if cost > max {
		return max
	}
	return cost
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
