package kafka

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ramsey-B/thistle/pkg/extractor"
)

// ErrPoisonMessage marks a message that can never be processed. The consumer
// commits past it instead of retrying.
var ErrPoisonMessage = errors.New("poison message")

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key         string
	Value       []byte
	Headers     map[string]string
	Partition   int
	Offset      int64
	Timestamp   time.Time
	Topic       string
	TraceParent string
}

// DetectionRequest asks for a detection pass over one group.
type DetectionRequest struct {
	GroupID      int64 `json:"group_id"`
	ForceRecheck bool  `json:"force_recheck"`
}

// ParseDetectionRequest decodes a request loosely: group_id may be a number or
// a numeric string and force_recheck defaults to false.
func (m *IncomingMessage) ParseDetectionRequest() (DetectionRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(m.Value))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return DetectionRequest{}, fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}

	groupID, ok := extractor.Int64(payload, "group_id")
	if !ok || groupID <= 0 {
		return DetectionRequest{}, fmt.Errorf("%w: missing or invalid group_id", ErrPoisonMessage)
	}

	return DetectionRequest{
		GroupID:      groupID,
		ForceRecheck: extractor.Bool(payload, "force_recheck"),
	}, nil
}
