package projector

import (
	"encoding/json"
	"fmt"
)

// step is one try-read over a decoded JSON value. It returns the child value and
// false when the container is missing, has the wrong shape, or is too short.
type step struct {
	name string
	read func(v any) (any, bool)
}

// key reads a non-null member of a JSON object.
func key(name string) step {
	return step{name: "." + name, read: func(v any) (any, bool) {
		return field(v, name)
	}}
}

// at reads element i of a JSON array.
func at(i int) step {
	return step{name: fmt.Sprintf("[%d]", i), read: func(v any) (any, bool) {
		return index(v, i)
	}}
}

// centerPath locates waterlogging.features[0].geometry.coordinates[0][0].
var centerPath = []step{
	key("features"),
	at(0),
	key("geometry"),
	key("coordinates"),
	at(0),
	at(0),
}

// walk applies steps in order. On failure it returns the path read so far
// including the failing step, e.g. ".features[0]".
func walk(v any, steps []step) (any, string, bool) {
	var path string
	for _, s := range steps {
		path += s.name
		next, ok := s.read(v)
		if !ok {
			return nil, path, false
		}
		v = next
	}
	return v, path, true
}

func field(v any, name string) (any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	child, ok := obj[name]
	if !ok || child == nil {
		return nil, false
	}
	return child, true
}

func index(v any, i int) (any, bool) {
	arr, ok := v.([]any)
	if !ok || i < 0 || len(arr) <= i {
		return nil, false
	}
	return arr[i], true
}

// position reads a GeoJSON position [lon, lat, ...].
func position(v any) (lon, lat float64, ok bool) {
	arr, isArr := v.([]any)
	if !isArr || len(arr) < 2 {
		return 0, 0, false
	}
	lon, okLon := number(arr[0])
	lat, okLat := number(arr[1])
	if !okLon || !okLat {
		return 0, 0, false
	}
	return lon, lat, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
