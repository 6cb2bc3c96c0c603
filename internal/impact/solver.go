// Package impact implements the Almgren-Chriss optimal execution model: a
// backward dynamic program over an execution-trajectory lattice that trades
// off impact cost against volatility (timing) risk, plus the conversion of
// the resulting trajectory into a USD impact cost.
package impact

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/costsim/internal/domain"
)

// maxExpInput bounds every exponent passed to math.Exp so the DP stays in
// floating-point range regardless of parameter choices.
const maxExpInput = 700

// Config controls the discretization of the DP grid.
type Config struct {
	// TimeSteps is the number of lattice time steps T. The trajectory the
	// solver returns has T-1 entries.
	TimeSteps int

	// TimeStepSize is the duration dt of each step, in the same time unit
	// the impact coefficients were tuned in.
	TimeStepSize float64

	// UnitScale converts base-currency inventory into discrete lattice
	// units: units = quantityUSD / orderPrice * UnitScale.
	UnitScale float64

	// MaxInventory caps the discretized inventory. The DP is O(T * N^2), so
	// the cap is what keeps a single request sub-second.
	MaxInventory int
}

// DefaultConfig mirrors the discretization the model was tuned with:
// a 5-step horizon of half-unit steps, milli-unit inventory granularity,
// capped at 10,000 units.
func DefaultConfig() Config {
	return Config{
		TimeSteps:    5,
		TimeStepSize: 0.5,
		UnitScale:    1e3,
		MaxInventory: 10_000,
	}
}

// Solver computes cost-minimizing liquidation trajectories for the given
// impact parameters. A Solver is immutable and safe for concurrent use.
type Solver struct {
	params domain.ImpactParameters
	cfg    Config
}

// New validates the parameters and discretization config and returns a
// Solver. Invalid inputs are programming or upstream-data errors, so they
// fail fast instead of degrading.
func New(params domain.ImpactParameters, cfg Config) (*Solver, error) {
	if !params.Valid() {
		return nil, fmt.Errorf("impact: %w: all impact parameters must be positive (%+v)", domain.ErrInvalidParams, params)
	}
	if cfg.TimeSteps < 2 {
		return nil, fmt.Errorf("impact: %w: time steps must be at least 2, got %d", domain.ErrInvalidParams, cfg.TimeSteps)
	}
	if cfg.TimeStepSize <= 0 {
		return nil, fmt.Errorf("impact: %w: time step size must be positive, got %v", domain.ErrInvalidParams, cfg.TimeStepSize)
	}
	if cfg.UnitScale <= 0 {
		return nil, fmt.Errorf("impact: %w: unit scale must be positive, got %v", domain.ErrInvalidParams, cfg.UnitScale)
	}
	if cfg.MaxInventory <= 0 {
		return nil, fmt.Errorf("impact: %w: max inventory must be positive, got %d", domain.ErrInvalidParams, cfg.MaxInventory)
	}
	return &Solver{params: params, cfg: cfg}, nil
}

// Params returns the solver's impact parameters.
func (s *Solver) Params() domain.ImpactParameters { return s.params }

// temporaryImpact is the transient per-unit price concession for trading at
// rate v: eta * v^alpha.
func (s *Solver) temporaryImpact(v float64) float64 {
	return s.params.Eta * math.Pow(v, s.params.Alpha)
}

// permanentImpact is the lasting price shift from trading at rate v:
// gamma * v^beta.
func (s *Solver) permanentImpact(v float64) float64 {
	return s.params.Gamma * math.Pow(v, s.params.Beta)
}

// hamiltonian is the single-step objective for liquidating sell units out of
// an inventory of inv in one step: risk-weighted permanent and temporary
// impact plus the variance penalty on the inventory still held.
func (s *Solver) hamiltonian(inv, sell int, volatility float64) float64 {
	dt := s.cfg.TimeStepSize
	la := s.params.RiskAversion
	rate := float64(sell) / dt
	remaining := float64(inv - sell)

	perm := la * float64(sell) * s.permanentImpact(rate)
	temp := la * remaining * dt * s.temporaryImpact(rate)
	risk := 0.5 * la * la * volatility * volatility * dt * remaining * remaining
	return perm + temp + risk
}

// OptimalExecution runs the backward DP for liquidating totalUnits over the
// configured horizon and returns the realized trajectory from the forward
// replay. The trajectory has TimeSteps-1 entries and sums to exactly
// totalUnits: the terminal boundary liquidates whatever remains.
//
// A negative inventory is a contract violation and returns an error; zero
// inventory returns an empty trajectory.
func (s *Solver) OptimalExecution(totalUnits int, volatility float64) (domain.ExecutionTrajectory, error) {
	if totalUnits < 0 {
		return nil, fmt.Errorf("impact: %w: inventory must be non-negative, got %d", domain.ErrInvalidParams, totalUnits)
	}
	if totalUnits == 0 {
		return domain.ExecutionTrajectory{}, nil
	}

	T := s.cfg.TimeSteps
	dt := s.cfg.TimeStepSize

	value := make([][]float64, T)
	bestMoves := make([][]int, T)
	for t := range value {
		value[t] = make([]float64, totalUnits+1)
		bestMoves[t] = make([]int, totalUnits+1)
	}

	// Terminal boundary: the last step must liquidate everything held.
	for q := 0; q <= totalUnits; q++ {
		cost := float64(q) * s.temporaryImpact(float64(q)/dt)
		value[T-1][q] = math.Exp(clip(cost))
		bestMoves[T-1][q] = q
	}

	// Backward pass in log space: exp(log(value[t+1][q-n]) + H(q,n)),
	// clipped before every exp to stay finite.
	for t := T - 2; t >= 0; t-- {
		for q := 0; q <= totalUnits; q++ {
			bestValue := math.Inf(1)
			for n := 0; n <= q; n++ {
				future := value[t+1][q-n]
				logFuture := math.Inf(-1)
				if future > 0 {
					logFuture = math.Log(future)
				}
				h := clip(s.hamiltonian(q, n, volatility))
				total := math.Exp(clip(logFuture + h))
				if total < bestValue {
					bestValue = total
					bestMoves[t][q] = n
				}
			}
			value[t][q] = bestValue
		}
	}

	// Forward replay of the recorded argmin choices from full inventory.
	traj := make(domain.ExecutionTrajectory, 0, T-1)
	inventory := totalUnits
	for t := 1; t < T; t++ {
		move := bestMoves[t][inventory]
		inventory -= move
		traj = append(traj, move)
	}
	return traj, nil
}

// TrajectoryCost sums each step's temporary and permanent impact in model
// units (per-unit price terms, not yet USD).
func (s *Solver) TrajectoryCost(traj domain.ExecutionTrajectory) float64 {
	dt := s.cfg.TimeStepSize
	var total float64
	for _, step := range traj {
		rate := float64(step) / dt
		total += s.temporaryImpact(rate) + s.permanentImpact(rate)
	}
	return total
}

// EstimateImpact converts a USD notional into discrete inventory units,
// solves for the optimal trajectory at the given volatility, and returns the
// USD impact cost together with the trajectory.
//
// A notional that discretizes to zero units (tiny order, or a non-positive
// order price from a degraded book) is a no-op costing nothing; the DP is
// never invoked for it.
func (s *Solver) EstimateImpact(quantityUSD, orderPrice, volatility float64) (float64, domain.ExecutionTrajectory, error) {
	units := 0
	if orderPrice > 0 {
		units = int(quantityUSD / orderPrice * s.cfg.UnitScale)
	}
	if units > s.cfg.MaxInventory {
		units = s.cfg.MaxInventory
	}
	if units <= 0 {
		return 0, domain.ExecutionTrajectory{}, nil
	}

	traj, err := s.OptimalExecution(units, volatility)
	if err != nil {
		return 0, nil, err
	}
	cost := s.TrajectoryCost(traj) * orderPrice / s.cfg.UnitScale
	return cost, traj, nil
}

// clip bounds an exponent into the range math.Exp can represent.
func clip(x float64) float64 {
	if x > maxExpInput {
		return maxExpInput
	}
	if x < -maxExpInput {
		return -maxExpInput
	}
	return x
}
