package interpolate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	t.Parallel()

	variables := map[string]any{
		"user": map[string]any{
			"name": "Ada",
			"address": map[string]any{
				"city": "London",
			},
		},
		"count":  float64(3),
		"active": true,
		"tags":   []any{"a", "b"},
		"empty":  nil,
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "plain text untouched",
			template: "hello world",
			expected: "hello world",
		},
		{
			name:     "single placeholder",
			template: "hello ${user.name}",
			expected: "hello Ada",
		},
		{
			name:     "nested path",
			template: "city: ${user.address.city}",
			expected: "city: London",
		},
		{
			name:     "multiple placeholders",
			template: "${user.name} has ${count} items",
			expected: "Ada has 3 items",
		},
		{
			name:     "boolean value",
			template: "active=${active}",
			expected: "active=true",
		},
		{
			name:     "unresolved placeholder left verbatim",
			template: "missing ${user.email} here",
			expected: "missing ${user.email} here",
		},
		{
			name:     "path through non-map left verbatim",
			template: "${user.name.first}",
			expected: "${user.name.first}",
		},
		{
			name:     "composite value encoded as JSON",
			template: "tags: ${tags}",
			expected: `tags: ["a","b"]`,
		},
		{
			name:     "map value encoded as JSON",
			template: "${user.address}",
			expected: `{"city":"London"}`,
		},
		{
			name:     "nil value renders null",
			template: "value is ${empty}",
			expected: "value is null",
		},
		{
			name:     "empty template",
			template: "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, Interpolate(tt.template, variables))
		})
	}
}

func TestInterpolateNilVariables(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "value: ${a.b}", Interpolate("value: ${a.b}", nil))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	variables := map[string]any{
		"a": map[string]any{
			"b": 42,
		},
	}

	value, found := Resolve("a.b", variables)
	assert.True(t, found)
	assert.Equal(t, 42, value)

	_, found = Resolve("a.c", variables)
	assert.False(t, found)

	_, found = Resolve("a.b.c", variables)
	assert.False(t, found)

	value, found = Resolve("a", variables)
	assert.True(t, found)
	assert.Equal(t, map[string]any{"b": 42}, value)
}
