package driver

import (
	"encoding/json"
	"fmt"
)

// marshalStable serializes v with object keys sorted and no insignificant
// whitespace, so repeated calls over equal values produce byte-identical
// output. The value is round-tripped through generic maps because struct
// fields otherwise serialize in declaration order.
func marshalStable(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize response: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("failed to normalize response: %w", err)
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("failed to serialize response: %w", err)
	}
	return string(out), nil
}
