package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/costsim/internal/domain"
)

func defaultParams() domain.ImpactParameters {
	return domain.ImpactParameters{
		Alpha:        1,
		Beta:         1,
		Gamma:        0.05,
		Eta:          0.05,
		RiskAversion: 0.001,
	}
}

func TestNewRejectsInvalidInputs(t *testing.T) {
	bad := defaultParams()
	bad.Eta = 0
	_, err := New(bad, DefaultConfig())
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	cfg := DefaultConfig()
	cfg.TimeSteps = 1
	_, err = New(defaultParams(), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	cfg = DefaultConfig()
	cfg.TimeStepSize = 0
	_, err = New(defaultParams(), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	cfg = DefaultConfig()
	cfg.UnitScale = -1
	_, err = New(defaultParams(), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	cfg = DefaultConfig()
	cfg.MaxInventory = 0
	_, err = New(defaultParams(), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestOptimalExecutionBoundaries(t *testing.T) {
	s, err := New(defaultParams(), DefaultConfig())
	require.NoError(t, err)

	traj, err := s.OptimalExecution(0, 0.02)
	require.NoError(t, err)
	assert.Empty(t, traj)

	_, err = s.OptimalExecution(-1, 0.02)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestOptimalExecutionLiquidatesEverything(t *testing.T) {
	cfg := DefaultConfig()
	s, err := New(defaultParams(), cfg)
	require.NoError(t, err)

	for _, units := range []int{1, 7, 50} {
		traj, err := s.OptimalExecution(units, 0.02)
		require.NoError(t, err)
		assert.Len(t, traj, cfg.TimeSteps-1)
		assert.Equal(t, units, traj.TotalUnits())
		for _, step := range traj {
			assert.GreaterOrEqual(t, step, 0)
		}
	}
}

func TestTrajectoryCostPositive(t *testing.T) {
	s, err := New(defaultParams(), DefaultConfig())
	require.NoError(t, err)

	traj, err := s.OptimalExecution(20, 0.05)
	require.NoError(t, err)
	assert.Greater(t, s.TrajectoryCost(traj), 0.0)
	assert.Zero(t, s.TrajectoryCost(domain.ExecutionTrajectory{}))
}

func TestEstimateImpactDiscretization(t *testing.T) {
	s, err := New(defaultParams(), DefaultConfig())
	require.NoError(t, err)

	// Degraded book: no order price, no cost, no DP.
	cost, traj, err := s.EstimateImpact(1000, 0, 0.02)
	require.NoError(t, err)
	assert.Zero(t, cost)
	assert.Empty(t, traj)

	// Notional too small to produce a single unit.
	cost, traj, err = s.EstimateImpact(0.05, 100_000, 0.02)
	require.NoError(t, err)
	assert.Zero(t, cost)
	assert.Empty(t, traj)
}

func TestEstimateImpactSmallOrder(t *testing.T) {
	// Keep units tiny: units = quantity / price * scale = 5 * 100 / 10 = 50.
	cfg := Config{TimeSteps: 5, TimeStepSize: 0.5, UnitScale: 100, MaxInventory: 200}
	s, err := New(defaultParams(), cfg)
	require.NoError(t, err)

	cost, traj, err := s.EstimateImpact(5, 10, 0.02)
	require.NoError(t, err)
	assert.Greater(t, cost, 0.0)
	assert.Equal(t, 50, traj.TotalUnits())
}

func TestEstimateImpactCapsInventory(t *testing.T) {
	cfg := Config{TimeSteps: 3, TimeStepSize: 0.5, UnitScale: 1, MaxInventory: 10}
	s, err := New(defaultParams(), cfg)
	require.NoError(t, err)

	_, traj, err := s.EstimateImpact(1_000_000, 1, 0.02)
	require.NoError(t, err)
	assert.Equal(t, cfg.MaxInventory, traj.TotalUnits())
}
