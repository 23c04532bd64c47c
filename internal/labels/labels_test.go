package labels

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "spaces become dashes",
			input:    "kube app test",
			expected: "kube-app-test",
		},
		{
			name:     "uppercase is lowered",
			input:    "MyApp",
			expected: "myapp",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  web server  ",
			expected: "web-server",
		},
		{
			name:     "special characters collapsed",
			input:    "app_v1!?2",
			expected: "app-v1-2",
		},
		{
			name:     "no leading or trailing dash",
			input:    "-app-",
			expected: "app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeName(tt.input))
		})
	}
}

func TestSanitizeNameTruncates(t *testing.T) {
	long := strings.Repeat("a", 100)
	assert.Len(t, SanitizeName(long), 63)
}

func TestImageRef(t *testing.T) {
	tests := []struct {
		name     string
		image    string
		tag      string
		expected string
	}{
		{name: "empty tag", image: "ubuntu", tag: "", expected: "ubuntu"},
		{name: "latest tag", image: "ubuntu", tag: "latest", expected: "ubuntu"},
		{name: "explicit tag", image: "Ubuntu", tag: "16.04", expected: "Ubuntu:16.04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ImageRef(tt.image, tt.tag))
		})
	}
}

func TestPortNames(t *testing.T) {
	assert.Equal(t, "int-5589", InternalPortName(5589))
	assert.Equal(t, "ext-443", ExternalPortName(443))
}

func TestMerge(t *testing.T) {
	merged := Merge(
		map[string]string{SandboxID: "S1"},
		map[string]string{App: "web"},
		map[string]string{App: "web", ExternalTraffic: "true"},
	)

	assert.Equal(t, map[string]string{
		SandboxID:       "S1",
		App:             "web",
		ExternalTraffic: "true",
	}, merged)
}

func TestNamespaceName(t *testing.T) {
	assert.Equal(t, "cs-s1", NamespaceName("S1"))
}
