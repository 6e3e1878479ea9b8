package domain

import "time"

// Document is an uploaded source, identified by the SHA-256 fingerprint of
// its raw bytes. Re-uploading different content under the same source name
// produces a new fingerprint which supersedes the old document in the index.
type Document struct {
	Fingerprint string
	Source      string
	Text        string
}

// Chunk is a contiguous span of one document's text, the unit of embedding
// and retrieval. Start and End are rune-aligned byte offsets into the
// document text.
type Chunk struct {
	ID             string
	DocFingerprint string
	Seq            int
	Text           string
	Start          int
	End            int
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// EmbeddedChunk pairs a chunk with its vector. The vector is only
// meaningful under the embedding model identity it was produced with.
type EmbeddedChunk struct {
	Chunk  Chunk
	Vector []float32
}

// Role values for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one entry of the append-only conversation history.
type Turn struct {
	Role      string           `json:"role"`
	Text      string           `json:"text"`
	Thinking  string           `json:"thinking,omitempty"`
	Failed    bool             `json:"failed,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
}

// ToolInvocation records one tool call made while answering a turn,
// successful or not.
type ToolInvocation struct {
	Tool      string    `json:"tool"`
	Input     string    `json:"input"`
	Result    string    `json:"result,omitempty"`
	Err       string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WeatherReport is the structured result of the built-in weather tool.
type WeatherReport struct {
	Location    string    `json:"location"`
	Condition   string    `json:"condition"`
	Temperature string    `json:"temperature"`
	AsOf        time.Time `json:"as_of"`
}

// Intent is the classifier's verdict for one query.
type Intent int

const (
	// IntentDocument routes the turn through retrieval only.
	IntentDocument Intent = iota
	// IntentTool routes the turn through tool invocation only.
	IntentTool
	// IntentBoth runs retrieval and tools concurrently and lets
	// synthesis arbitrate.
	IntentBoth
)

func (i Intent) String() string {
	switch i {
	case IntentDocument:
		return "document"
	case IntentTool:
		return "tool"
	case IntentBoth:
		return "both"
	}
	return "unknown"
}

// ChunkConfig is the chunking configuration a document was split under.
// The same document and config must always yield identical chunks.
type ChunkConfig struct {
	MaxSize int
	Overlap int
}

// IngestResult summarizes one document ingestion.
type IngestResult struct {
	Fingerprint string
	Source      string
	Chunks      int
	FromCache   bool
	Superseded  bool
}

type Stats struct {
	TotalDocs      int
	TotalChunks    int
	EmbeddingModel string
	Dimension      int
}
