package redact

import "encoding/json"

// redactStruct handles everything redactValue doesn't special-case: nil,
// bool, numbers pass through unchanged; anything else (structs, pointers to
// structs) is round-tripped through JSON into the map/slice/string shape
// redactValue already knows how to walk.
func redactStruct(value any) any {
	switch value.(type) {
	case nil, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return value
	}

	raw, err := json.Marshal(value)
	if err != nil {
		// Not JSON-serializable; nothing we can scan, return unchanged.
		return value
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return value
	}
	return redactValue(generic)
}
