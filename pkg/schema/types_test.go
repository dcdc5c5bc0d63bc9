package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes_Validate(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		value   any
		wantErr bool
	}{
		{"string", String(), "hello", false},
		{"empty string", String(), "", false},
		{"string rejects int", String(), 42, true},
		{"int", Int(), 42, false},
		{"int from json", Int(), float64(42), false},
		{"int rejects fraction", Int(), 42.5, true},
		{"float accepts int", Float(), 3, false},
		{"float rejects string", Float(), "3", true},
		{"bool", Bool(), true, false},
		{"map", Map(), map[string]any{"a": 1}, false},
		{"map rejects nil", Map(), nil, true},
		{"map rejects typed nil", Map(), map[string]any(nil), true},
		{"map rejects string", Map(), "x", true},
		{"any accepts nil", Any(), nil, false},
		{"slice", Slice(String()), []any{"a", "b"}, false},
		{"slice bad element", Slice(String()), []any{"a", 1}, true},
		{"nullable nil", Nullable(Map()), nil, false},
		{"nullable wrong type", Nullable(Map()), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCustom(t *testing.T) {
	positive := Custom("positive", func(v any) error {
		f, ok := v.(float64)
		if !ok || f <= 0 {
			return errors.New("must be positive")
		}
		return nil
	})
	assert.Equal(t, "positive", positive.Name())
	assert.NoError(t, positive.Validate(1.5))
	assert.Error(t, positive.Validate(-1.0))
}

func TestParseType_RoundTripsNames(t *testing.T) {
	for _, name := range []string{"string", "int", "float", "bool", "map", "any", "[string]", "[[int]]", "map?", "[map]?"} {
		typ, err := ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, typ.Name())
	}

	_, err := ParseType("decimal")
	assert.Error(t, err)
}
