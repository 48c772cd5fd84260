package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/pktmatch/pkg/types"
)

// Request is one incoming NDJSON line.
type Request struct {
	Type    string          `json:"type"` // "scan" | "open" | "feed" | "reset" | "close_stream" | "close"
	Payload json.RawMessage `json:"payload"`
}

// ScanPayload is the payload for "scan" requests. Content is base64 in JSON.
type ScanPayload struct {
	Content []byte `json:"content"`
}

// StreamPayload names a stream for "open", "reset" and "close_stream".
type StreamPayload struct {
	Stream string `json:"stream"`
}

// FeedPayload is the payload for "feed" requests. Data is base64 in JSON.
type FeedPayload struct {
	Stream string `json:"stream"`
	Data   []byte `json:"data"`
}

// Response is one outgoing NDJSON line.
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses.
type ReadyData struct {
	Version    string `json:"version"`
	Signatures int    `json:"signatures"`
}

// ScanResult is the data field for "scan" responses.
type ScanResult struct {
	Matches []*types.Match `json:"matches"`
}

// StreamResult is the data field for stream responses. Matches is set
// only for "feed".
type StreamResult struct {
	Stream         string         `json:"stream"`
	Matches        []*types.Match `json:"matches,omitempty"`
	BytesProcessed int64          `json:"bytes_processed"`
}
