package port

// Extractor turns raw document bytes of a declared format into plain text.
// Unknown formats fail with domain.ErrUnsupportedFormat.
type Extractor interface {
	Extract(raw []byte, format string) (string, error)
}
