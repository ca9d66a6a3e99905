package msg

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	ErrInvalidJSON = errors.New("record value is not valid JSON")
	ErrNotObject   = errors.New("record value is not a JSON object")
)

// Record represents a consumed Kafka record
type Record struct {
	Topic     string
	Key       string
	Value     []byte
	Partition int32
	Offset    int64
	Timestamp int64
}

// ID identifies the record by its log position. Redeliveries share it.
func (r Record) ID() string {
	return fmt.Sprintf("%s/%d/%d", r.Topic, r.Partition, r.Offset)
}

// RequestKey returns the key used for records derived from r: the Kafka key
// if set, else the request_id field, else the symbol field
func (r Record) RequestKey() string {
	if r.Key != "" {
		return r.Key
	}
	fields := gjson.GetManyBytes(r.Value, "request_id", "symbol")
	for _, f := range fields {
		if f.Type == gjson.String && f.Str != "" {
			return f.Str
		}
	}
	return ""
}

// DecodeObject decodes the record value into a field map
func (r Record) DecodeObject() (map[string]any, error) {
	if !gjson.ValidBytes(r.Value) {
		return nil, ErrInvalidJSON
	}
	if !gjson.ParseBytes(r.Value).IsObject() {
		return nil, ErrNotObject
	}

	var obj map[string]any
	if err := json.Unmarshal(r.Value, &obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record value: %w", err)
	}
	return obj, nil
}
