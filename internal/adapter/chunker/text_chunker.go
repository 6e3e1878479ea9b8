package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"docagent/internal/domain"
)

// Separators tried when looking for a natural cut point, strongest break
// first. Mirrors the splitter configuration the ingestion pipeline has
// always used for mixed CJK/Latin prose.
var separators = []string{"\n\n", "\n", "。", "！", "？", ". ", "! ", "? ", " "}

// TextChunker splits document text into overlapping passages of at most
// maxSize runes, preferring natural boundaries within a lookback window
// and falling back to hard cuts. Purely deterministic.
type TextChunker struct {
	maxSize int
	overlap int
}

// NewTextChunker validates the configuration: both values must be
// positive and overlap must be smaller than maxSize.
func NewTextChunker(maxSize, overlap int) (*TextChunker, error) {
	if maxSize <= 0 || overlap <= 0 {
		return nil, fmt.Errorf("%w: max_size and overlap must be positive (got %d, %d)",
			domain.ErrInvalidConfiguration, maxSize, overlap)
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap (%d) must be smaller than max_size (%d)",
			domain.ErrInvalidConfiguration, overlap, maxSize)
	}
	return &TextChunker{maxSize: maxSize, overlap: overlap}, nil
}

func (c *TextChunker) Config() domain.ChunkConfig {
	return domain.ChunkConfig{MaxSize: c.maxSize, Overlap: c.overlap}
}

// Chunk splits the document text. Each subsequent chunk begins overlap
// runes before the previous chunk's end, so context carries across
// boundaries. Offsets are rune indexes into the document text.
func (c *TextChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	start := 0
	seq := 0

	for start < len(runes) {
		end := start + c.maxSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.findBoundary(runes, start, end)
		}

		text := string(runes[start:end])
		chunks = append(chunks, domain.Chunk{
			ID:             generateChunkID(doc.Fingerprint, seq, start, end),
			DocFingerprint: doc.Fingerprint,
			Seq:            seq,
			Text:           text,
			Start:          start,
			End:            end,
		})
		seq++

		if end == len(runes) {
			break
		}

		newStart := end - c.overlap
		if newStart <= start {
			newStart = start + 1
		}
		start = newStart
	}

	return chunks, nil
}

// findBoundary looks backwards from the hard limit for the strongest
// separator inside the lookback window and returns the cut position just
// after it. Falls back to the hard limit when no separator is found.
func (c *TextChunker) findBoundary(runes []rune, start, limit int) int {
	window := c.maxSize / 4
	if window > 100 {
		window = 100
	}
	floor := limit - window
	// A cut at or before start+overlap would put the next chunk's start
	// at or behind this one; a hard cut beats stalling.
	if min := start + c.overlap + 1; floor < min {
		floor = min
	}
	if floor >= limit {
		return limit
	}

	text := string(runes[floor:limit])
	for _, sep := range separators {
		if pos := lastIndexRunes(text, sep); pos >= 0 {
			return floor + pos + len([]rune(sep))
		}
	}
	return limit
}

// lastIndexRunes returns the rune index of the last occurrence of sep in
// s, or -1.
func lastIndexRunes(s, sep string) int {
	runes := []rune(s)
	sepRunes := []rune(sep)
	for i := len(runes) - len(sepRunes); i >= 0; i-- {
		if string(runes[i:i+len(sepRunes)]) == sep {
			return i
		}
	}
	return -1
}

func generateChunkID(fingerprint string, seq, start, end int) string {
	data := fmt.Sprintf("%s:%d:%d-%d", fingerprint, seq, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
