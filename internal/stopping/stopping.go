package stopping

// #region evaluator

// Evaluator decides whether a dimension's session is complete. The decision
// is monotone: once it returns Stop for some (n, se), it returns Stop for
// any n' >= n with se' <= se.
type Evaluator struct {
	config Config
}

// NewEvaluator creates an evaluator with the given thresholds.
func NewEvaluator(config Config) *Evaluator {
	return &Evaluator{config: config}
}

// Evaluate checks the termination rules against the administered count and
// the current standard error. MinItems is a hard floor — the count includes
// the initial randomly selected item — so an unstable early estimate can
// never terminate a dimension prematurely. Pool exhaustion is signaled by
// the coordinator when the selector runs dry, before Evaluate is consulted.
func (e *Evaluator) Evaluate(nAdministered int, se float64) Decision {
	if nAdministered >= e.config.MinItems && se <= e.config.MinSEM {
		return Decision{Stop: true, Reason: ReasonPrecision}
	}
	if nAdministered >= e.config.MaxItems {
		return Decision{Stop: true, Reason: ReasonMaxItems}
	}
	return Decision{}
}

// #endregion evaluator
