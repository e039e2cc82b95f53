package schema_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effective-security/biomcp/schema"
)

type trialFilter struct {
	Condition string `json:"condition" jsonschema:"description=Medical condition to filter on"`
	Location  string `json:"location,omitempty" jsonschema:"description=City or country"`
}

type trialQuery struct {
	Query      string      `json:"query" jsonschema:"description=Free text query"`
	MaxResults int         `json:"max_results,omitempty" jsonschema:"description=Maximum number of results"`
	Filter     trialFilter `json:"filter,omitempty"`
	Phases     []string    `json:"phases,omitempty"`
}

func TestNew(t *testing.T) {
	sc, err := schema.New(reflect.TypeOf(trialQuery{}))
	require.NoError(t, err)
	require.NotNil(t, sc.Parameters)

	obj, err := sc.Object()
	require.NoError(t, err)
	assert.Equal(t, "object", obj["type"])

	props, ok := obj["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "max_results")
	assert.Contains(t, props, "filter")
	assert.Contains(t, props, "phases")

	query := props["query"].(map[string]any)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "Free text query", query["description"])

	// Nested struct references are inlined, not left as $refs.
	filter := props["filter"].(map[string]any)
	_, hasRef := filter["$ref"]
	assert.False(t, hasRef)
	filterProps, ok := filter["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, filterProps, "condition")

	required, ok := obj["required"].([]any)
	require.True(t, ok)
	assert.Contains(t, required, "query")
	assert.NotContains(t, required, "max_results")
}

func TestNewCached(t *testing.T) {
	first, err := schema.New(reflect.TypeOf(trialQuery{}))
	require.NoError(t, err)
	second, err := schema.New(reflect.TypeOf(trialQuery{}))
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestString(t *testing.T) {
	sc, err := schema.New(reflect.TypeOf(trialFilter{}))
	require.NoError(t, err)
	assert.Contains(t, sc.String(), `"condition"`)
}
