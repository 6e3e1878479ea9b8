package port

import "docagent/internal/domain"

// Classifier decides how a query is routed. Implementations must be cheap
// relative to generation and must not call the generation backend to make
// the decision; rule-based and model-based strategies are both acceptable
// behind this interface.
type Classifier interface {
	// Classify returns the routing intent and, for tool-eligible
	// queries, the extracted tool input (e.g. a location).
	Classify(query string) (domain.Intent, string)
}
