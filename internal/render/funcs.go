package render

import (
	"errors"
	"html/template"
)

func baseFuncs() template.FuncMap {
	return template.FuncMap{
		"dict": dict,
	}
}

// dict builds a map from alternating key/value arguments so partials can
// receive more than one value.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, errors.New("dict: keys must be strings")
		}
		out[key] = pairs[i+1]
	}
	return out, nil
}
