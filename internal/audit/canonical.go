package audit

import (
	"encoding/json"
	"time"
)

// canonicalRecordBytes serializes everything in e except Hash into
// deterministic, sorted-key JSON. Go's encoding/json already sorts
// map[string]any keys; round-tripping the whole record through an
// interface{} turns every nested struct into a map too, so nesting below
// Data is sorted the same way. This is what verifyIntegrity recomputes
// against, so it must be called identically at append time and at verify
// time — both paths go through this one function.
func canonicalRecordBytes(e *Entry) ([]byte, error) {
	record := map[string]any{
		"id":           e.ID,
		"timestamp":    e.Timestamp.UTC().Format(time.RFC3339),
		"type":         string(e.Type),
		"sessionId":    e.SessionID,
		"agentId":      e.AgentID,
		"data":         e.Data,
		"previousHash": e.PreviousHash,
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
