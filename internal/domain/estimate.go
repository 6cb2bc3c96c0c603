package domain

import "time"

// ImpactParameters are the exponents and scaling coefficients of the
// Almgren-Chriss impact cost functions. They are tuned offline and supplied
// through configuration; the core treats them as immutable per call.
type ImpactParameters struct {
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	Gamma        float64 `json:"gamma"`
	Eta          float64 `json:"eta"`
	RiskAversion float64 `json:"risk_aversion"`
}

// Valid reports whether every parameter is strictly positive.
func (p ImpactParameters) Valid() bool {
	return p.Alpha > 0 && p.Beta > 0 && p.Gamma > 0 && p.Eta > 0 && p.RiskAversion > 0
}

// ExecutionTrajectory is the number of discrete units liquidated per time
// step, as chosen by the impact solver. Its length is timeSteps-1 and its
// elements sum to the full discretized inventory.
type ExecutionTrajectory []int

// TotalUnits returns the inventory liquidated over the whole trajectory.
func (t ExecutionTrajectory) TotalUnits() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// MakerTakerProba is the classifier output: two probabilities that sum to 1
// for a well-formed prediction, or both zero when the model degraded.
type MakerTakerProba struct {
	Maker float64 `json:"maker"`
	Taker float64 `json:"taker"`
}

// Degraded component tags recorded on a CostEstimate when a sub-estimator
// fell back to its neutral value instead of failing the request.
const (
	DegradedBook       = "book"
	DegradedVolatility = "volatility"
	DegradedSlippage   = "slippage"
	DegradedImpact     = "impact"
	DegradedClassifier = "classifier"
)

// CostEstimate is the composite result of one cost estimation request.
// NetCost = Slippage + Fee + MarketImpact. A non-empty Degraded list names
// the components that returned neutral values; the estimate is still
// complete and well-typed.
type CostEstimate struct {
	ID               string    `json:"id"`
	Instrument       string    `json:"instrument"`
	Side             OrderSide `json:"side"`
	QuantityUSD      float64   `json:"quantity_usd"`
	OrderPrice       float64   `json:"order_price"`
	Volatility       float64   `json:"volatility"`
	Slippage         float64   `json:"slippage"`
	Fee              float64   `json:"fee"`
	MarketImpact     float64   `json:"market_impact"`
	NetCost          float64   `json:"net_cost"`
	MakerProbability float64   `json:"maker_probability"`
	TakerProbability float64   `json:"taker_probability"`
	Degraded         []string  `json:"degraded,omitempty"`
	Latency          float64   `json:"latency_ms"`
	Timestamp        time.Time `json:"timestamp"`
}

// TradeTick is a single public trade print from the exchange feed, consumed
// by the training-data collector.
type TradeTick struct {
	Instrument string
	Price      float64
	Size       float64
	Side       OrderSide
	Timestamp  time.Time
}
