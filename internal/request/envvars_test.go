package request

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvironmentVariablesMultipleEntries(t *testing.T) {
	result, err := ParseEnvironmentVariables("env1=val1, env2 =val2 , env3 = val3, env4=")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"env1": "val1",
		"env2": "val2",
		"env3": "val3",
		"env4": "",
	}, result)
}

func TestParseEnvironmentVariablesSingleEntryWithExtraSpaces(t *testing.T) {
	result, err := ParseEnvironmentVariables("  env1  = val1 ")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"env1": "val1"}, result)
}

func TestParseEnvironmentVariablesRejectsMissingSeparator(t *testing.T) {
	result, err := ParseEnvironmentVariables("env1 : val1")

	require.Error(t, err)
	assert.Nil(t, result)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "Cannot parse environment variable 'env1 : val1'. Expected format: key=value", err.Error())
}

func TestParseEnvironmentVariablesBlankInputYieldsNoMapping(t *testing.T) {
	for _, input := range []string{"", " ", "\t  "} {
		result, err := ParseEnvironmentVariables(input)
		require.NoError(t, err)
		assert.Nil(t, result)
	}
}

func TestParseEnvironmentVariablesDuplicateKeyLastWins(t *testing.T) {
	result, err := ParseEnvironmentVariables("key=first, key=second")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"key": "second"}, result)
}

// Re-serializing a parsed mapping and parsing again must yield the same
// mapping: parsing is idempotent under re-trimming.
func TestParseEnvironmentVariablesRoundTripStable(t *testing.T) {
	first, err := ParseEnvironmentVariables("a=1,  b = 2 ,c=")
	require.NoError(t, err)

	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, first[k]))
	}

	second, err := ParseEnvironmentVariables(strings.Join(pairs, ", "))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
