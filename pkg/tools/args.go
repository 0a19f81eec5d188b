package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
)

// Args are tool arguments that passed schema validation. Accessors return
// zero values for absent keys; validation guarantees required keys exist.
type Args map[string]any

func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a Args) Int(key string) int {
	n, _ := a[key].(int)
	return n
}

func (a Args) Float(key string) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (a Args) Bool(key string) bool {
	b, _ := a[key].(bool)
	return b
}

// Object returns a nested object argument, or nil when absent or null
func (a Args) Object(key string) Args {
	o, _ := a[key].(Args)
	return o
}

// validate checks raw model arguments against params, coercing JSON numbers
// to the declared type and filling defaults.
func validate(params []chat.Param, raw map[string]any) (Args, error) {
	if bad, ok := raw[chat.RawArgumentsKey]; ok {
		return nil, fmt.Errorf("arguments are not a JSON object: %v", bad)
	}

	out := make(Args, len(params))
	for _, p := range params {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, fmt.Errorf("missing required argument %q", p.Name)
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}

		coerced, err := coerce(p, v)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", p.Name, err)
		}
		out[p.Name] = coerced
	}
	return out, nil
}

func coerce(p chat.Param, v any) (any, error) {
	switch p.Type {
	case chat.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		if len(p.Enum) == 0 {
			return s, nil
		}
		for _, e := range p.Enum {
			if strings.EqualFold(strings.TrimSpace(s), e) {
				return e, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of [%s]", s, strings.Join(p.Enum, ", "))

	case chat.TypeInteger:
		return toInt(v)

	case chat.TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case json.Number:
			return n.Float64()
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil, fmt.Errorf("expected number, got %q", n)
			}
			return f, nil
		}
		return nil, fmt.Errorf("expected number, got %T", v)

	case chat.TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
		return b, nil

	case chat.TypeObject:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", v)
		}
		return validate(p.Properties, m)
	}
	return v, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}
