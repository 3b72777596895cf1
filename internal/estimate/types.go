package estimate

// #region method

// Method selects the estimation strategy.
type Method string

const (
	MLE Method = "mle"
	EAP Method = "eap"
)

// Valid reports whether the method is supported.
func (m Method) Valid() bool {
	return m == MLE || m == EAP
}

// #endregion method

// #region fallback

// Fallback is a reason code attached to estimates that did not come from a
// cleanly converged run of the requested method. Callers can distinguish
// reliable from degenerate estimates without inspecting logs.
type Fallback string

const (
	FallbackNone        Fallback = ""
	FallbackNoResponses Fallback = "no_responses"       // prior returned, nothing administered yet
	FallbackDegenerate  Fallback = "degenerate_pattern" // monotone likelihood, EAP substituted for MLE
	FallbackNoConverge  Fallback = "no_convergence"     // Newton iteration failed, EAP substituted
	FallbackBound       Fallback = "theta_bound"        // estimate clamped to the configured bound
)

// #endregion fallback

// #region config

// Config holds estimator tuning parameters.
type Config struct {
	Method        Method  `yaml:"method" json:"method"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"` // Fisher-scoring iteration cap
	Tolerance     float64 `yaml:"tolerance" json:"tolerance"`           // convergence threshold on the Newton step
	ThetaBound    float64 `yaml:"theta_bound" json:"theta_bound"`       // MLE iterates clamped to [-ThetaBound, ThetaBound]

	// EAP quadrature grid.
	QuadPoints int     `yaml:"quad_points" json:"quad_points"`
	QuadMin    float64 `yaml:"quad_min" json:"quad_min"`
	QuadMax    float64 `yaml:"quad_max" json:"quad_max"`

	// Normal prior, also returned verbatim when nothing has been administered.
	PriorMean float64 `yaml:"prior_mean" json:"prior_mean"`
	PriorSD   float64 `yaml:"prior_sd" json:"prior_sd"`
}

// DefaultConfig returns the standard setup: EAP over 61 points on [-6,6]
// with a standard normal prior.
func DefaultConfig() Config {
	return Config{
		Method:        EAP,
		MaxIterations: 50,
		Tolerance:     1e-4,
		ThetaBound:    4.0,
		QuadPoints:    61,
		QuadMin:       -6.0,
		QuadMax:       6.0,
		PriorMean:     0.0,
		PriorSD:       1.0,
	}
}

// Validate checks the config for usable ranges.
func (c Config) Validate() error {
	if !c.Method.Valid() {
		return errUnknownMethod(c.Method)
	}
	if c.MaxIterations <= 0 || c.Tolerance <= 0 || c.ThetaBound <= 0 {
		return errBadIteration
	}
	if c.QuadPoints < 2 || c.QuadMax <= c.QuadMin {
		return errBadQuadrature
	}
	if c.PriorSD <= 0 {
		return errBadPrior
	}
	return nil
}

// #endregion config

// #region result

// Result carries a theta estimate with its provenance: which method actually
// produced it, whether it converged, and any fallback reason.
type Result struct {
	Theta      float64  `json:"theta"`
	SE         float64  `json:"se"`
	Method     Method   `json:"method"` // method that produced the numbers (may differ from the requested one)
	Iterations int      `json:"iterations,omitempty"`
	Converged  bool     `json:"converged"`
	Fallback   Fallback `json:"fallback,omitempty"`
}

// Degenerate reports whether the estimate came from a fallback path.
func (r Result) Degenerate() bool {
	return r.Fallback != FallbackNone && r.Fallback != FallbackNoResponses
}

// #endregion result
