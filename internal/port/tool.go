package port

import "context"

// Tool is a pluggable external action the agent may invoke before
// synthesis. Failures are typed (domain.ErrToolInputInvalid,
// ErrToolUnavailable, ErrToolTimeout) and never abort the turn.
type Tool interface {
	Name() string

	Description() string

	// Invoke runs the tool with a free-form input string and returns a
	// human-readable result for inclusion in the synthesis prompt.
	Invoke(ctx context.Context, input string) (string, error)
}
