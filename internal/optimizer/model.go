package optimizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/stitts-dev/roster-optimizer/internal/models"
)

// Roster rules
const (
	RosterSize     = 14
	MinPerPosition = 3

	// Guards carry their own bounds on top of the per-position minimum.
	GuardPosition = "G"
	MinGuards     = 5
	MaxGuards     = 7
)

// Constraint names
const (
	TeamSizeConstraint    = "team_size"
	SalaryCapConstraint   = "salary_cap"
	GuardsMinConstraint   = "guards_min"
	GuardsMaxConstraint   = "guards_max"
	positionMinNamePrefix = "min_position_"
)

// relative tolerance used when checking an assignment against a constraint
const feasibilityTol = 1e-9

// Sense is the relation between a constraint's left-hand side and its RHS.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// holds reports whether lhs (sense) rhs within tolerance.
func (s Sense) holds(lhs, rhs float64) bool {
	tol := feasibilityTol * math.Max(1, math.Abs(rhs))
	switch s {
	case LessEqual:
		return lhs <= rhs+tol
	case GreaterEqual:
		return lhs >= rhs-tol
	case Equal:
		return math.Abs(lhs-rhs) <= tol
	}
	return false
}

// Variable is a binary selection variable for one player.
type Variable struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Player string `json:"player"`
}

// Term is coef * x[Var].
type Term struct {
	Var  int     `json:"var"`
	Coef float64 `json:"coef"`
}

// Constraint is a linear row: sum(Terms) Sense RHS.
type Constraint struct {
	Name  string  `json:"name"`
	Terms []Term  `json:"terms"`
	Sense Sense   `json:"sense"`
	RHS   float64 `json:"rhs"`
}

// Activity evaluates the left-hand side for a 0/1 selection.
func (c Constraint) Activity(selection []bool) float64 {
	total := 0.0
	for _, t := range c.Terms {
		if selection[t.Var] {
			total += t.Coef
		}
	}
	return total
}

// Objective holds one dense coefficient per variable.
type Objective struct {
	Maximize bool      `json:"maximize"`
	Coefs    []float64 `json:"coefs"`
}

// Model is a binary integer program over the player pool. It carries no
// solver state and can be built, inspected and evaluated without a backend.
type Model struct {
	Variables   []Variable            `json:"variables"`
	Constraints []Constraint          `json:"constraints"`
	Objective   Objective             `json:"objective"`
	Players     []models.ScoredPlayer `json:"-"`
	Playstyle   Playstyle             `json:"playstyle"`
	SalaryCap   float64               `json:"salary_cap"`
	Positions   []string              `json:"positions"`
}

// BuildModel encodes roster selection for the given playstyle and salary cap.
// An undersized pool or unsatisfiable constraints still produce a model; that
// is reported by the solver, not here.
func BuildModel(players []models.ScoredPlayer, style Playstyle, salaryCap float64) (*Model, error) {
	if !style.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlaystyle, style)
	}
	if !(salaryCap > 0) || math.IsInf(salaryCap, 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSalaryCap, salaryCap)
	}

	score := style.Score()
	m := &Model{
		Variables: make([]Variable, len(players)),
		Objective: Objective{Maximize: true, Coefs: make([]float64, len(players))},
		Players:   players,
		Playstyle: style,
		SalaryCap: salaryCap,
		Positions: distinctPositions(players),
	}

	all := make([]Term, len(players))
	salary := make([]Term, len(players))
	for i, p := range players {
		m.Variables[i] = Variable{Index: i, Name: fmt.Sprintf("x_%d", i), Player: p.Name}
		m.Objective.Coefs[i] = score(p)
		all[i] = Term{Var: i, Coef: 1}
		salary[i] = Term{Var: i, Coef: p.Salary}
	}

	m.Constraints = append(m.Constraints,
		Constraint{Name: TeamSizeConstraint, Terms: all, Sense: Equal, RHS: RosterSize},
		Constraint{Name: SalaryCapConstraint, Terms: salary, Sense: LessEqual, RHS: salaryCap},
	)

	for _, pos := range m.Positions {
		m.Constraints = append(m.Constraints, Constraint{
			Name:  PositionConstraintName(pos),
			Terms: positionTerms(players, pos),
			Sense: GreaterEqual,
			RHS:   MinPerPosition,
		})
	}

	guards := positionTerms(players, GuardPosition)
	m.Constraints = append(m.Constraints,
		Constraint{Name: GuardsMinConstraint, Terms: guards, Sense: GreaterEqual, RHS: MinGuards},
		Constraint{Name: GuardsMaxConstraint, Terms: guards, Sense: LessEqual, RHS: MaxGuards},
	)

	return m, nil
}

// PositionConstraintName names the minimum-count row for a position.
func PositionConstraintName(position string) string {
	return positionMinNamePrefix + position
}

// Constraint looks up a constraint by name.
func (m *Model) Constraint(name string) (Constraint, bool) {
	for _, c := range m.Constraints {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}

// Evaluate checks a 0/1 selection against every constraint and returns the
// first violation.
func (m *Model) Evaluate(selection []bool) error {
	if len(selection) != len(m.Variables) {
		return fmt.Errorf("selection has %d entries, model has %d variables", len(selection), len(m.Variables))
	}
	for _, c := range m.Constraints {
		lhs := c.Activity(selection)
		if !c.Sense.holds(lhs, c.RHS) {
			return fmt.Errorf("constraint %s violated: %g %s %g", c.Name, lhs, c.Sense, c.RHS)
		}
	}
	return nil
}

// ObjectiveValue is the objective for a 0/1 selection.
func (m *Model) ObjectiveValue(selection []bool) float64 {
	total := 0.0
	for i, selected := range selection {
		if selected {
			total += m.Objective.Coefs[i]
		}
	}
	return total
}

func distinctPositions(players []models.ScoredPlayer) []string {
	seen := make(map[string]struct{})
	positions := make([]string, 0)
	for _, p := range players {
		if _, ok := seen[p.Position]; ok {
			continue
		}
		seen[p.Position] = struct{}{}
		positions = append(positions, p.Position)
	}
	sort.Strings(positions)
	return positions
}

func positionTerms(players []models.ScoredPlayer, position string) []Term {
	terms := make([]Term, 0)
	for i, p := range players {
		if p.Position == position {
			terms = append(terms, Term{Var: i, Coef: 1})
		}
	}
	return terms
}
