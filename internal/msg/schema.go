package msg

import "encoding/json"

// Topic names
const (
	TopicExecutionRequests   = "execution.requests"
	TopicExecutionResults    = "execution.results"
	TopicExecutionRejections = "execution.rejections"
)

// RejectionMsg is published for every request that fails decoding,
// validation or simulation. Payload carries the original value when it was
// valid JSON, RawValue carries it otherwise.
type RejectionMsg struct {
	EventID      string          `json:"event_id"`
	RequestKey   string          `json:"request_key"`
	Stage        string          `json:"stage"`
	Reason       string          `json:"reason"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	RawValue     string          `json:"raw_value,omitempty"`
	TsUnixMillis int64           `json:"ts_unix_millis"`
}
