package request

import "strings"

// ParseEnvironmentVariables parses a comma-separated "key=value" string into
// a map. Whitespace around keys, values and separators is trimmed, values
// may be empty, and duplicate keys resolve last-wins. A blank or
// whitespace-only input yields a nil map. A segment without a '=' separator
// fails with a *ParseError citing that segment.
func ParseEnvironmentVariables(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	vars := make(map[string]string)
	for _, segment := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(segment, "=")
		if !found {
			return nil, &ParseError{Entry: strings.TrimSpace(segment)}
		}
		vars[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return vars, nil
}
