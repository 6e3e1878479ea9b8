package port

import "docagent/internal/domain"

// HistoryStore is the append-only conversation log. Turns are never edited
// in place; the log is exported or cleared as a whole.
type HistoryStore interface {
	Append(turn domain.Turn) error

	// Recent returns up to n most recent turns in chronological order.
	Recent(n int) ([]domain.Turn, error)

	// Export returns the full log in chronological order.
	Export() ([]domain.Turn, error)

	Clear() error
}
