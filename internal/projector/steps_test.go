package projector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestField(t *testing.T) {
	obj := map[string]any{"a": 1.0, "nil": nil}

	v, ok := field(obj, "a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = field(obj, "nil")
	assert.False(t, ok, "null members count as missing")
	_, ok = field(obj, "b")
	assert.False(t, ok)
	_, ok = field([]any{obj}, "a")
	assert.False(t, ok)
	_, ok = field(nil, "a")
	assert.False(t, ok)
}

func TestIndex(t *testing.T) {
	arr := []any{"x", "y"}

	v, ok := index(arr, 1)
	assert.True(t, ok)
	assert.Equal(t, "y", v)

	_, ok = index(arr, 2)
	assert.False(t, ok)
	_, ok = index(arr, -1)
	assert.False(t, ok)
	_, ok = index("xy", 0)
	assert.False(t, ok)
	_, ok = index([]any{}, 0)
	assert.False(t, ok)
}

func TestPosition(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		lon, lat float64
		ok       bool
	}{
		{name: "pair", in: []any{2.35, 48.85}, lon: 2.35, lat: 48.85, ok: true},
		{name: "with elevation", in: []any{2.35, 48.85, 35.0}, lon: 2.35, lat: 48.85, ok: true},
		{name: "json numbers", in: []any{json.Number("1.5"), json.Number("2")}, lon: 1.5, lat: 2, ok: true},
		{name: "too short", in: []any{2.35}},
		{name: "not numbers", in: []any{"2.35", "48.85"}},
		{name: "nested", in: []any{[]any{2.35, 48.85}}},
		{name: "nil", in: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lon, lat, ok := position(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.lon, lon)
				assert.Equal(t, tt.lat, lat)
			}
		})
	}
}

func TestWalkReportsFailingStep(t *testing.T) {
	doc := map[string]any{
		"features": []any{
			map[string]any{"geometry": map[string]any{"coordinates": []any{}}},
		},
	}

	_, path, ok := walk(doc, centerPath)
	assert.False(t, ok)
	assert.Equal(t, ".features[0].geometry.coordinates[0]", path)

	v, path, ok := walk(doc, centerPath[:3])
	assert.True(t, ok)
	assert.Equal(t, ".features[0].geometry", path)
	assert.IsType(t, map[string]any{}, v)
}
