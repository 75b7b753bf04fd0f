package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FromAny converts a plain Go value, as produced by encoding/json or
// yaml.Unmarshal into any, into a Node. This is how form edits enter the model.
func FromAny(v any) (Node, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Node:
		return Clone(x), nil
	case string:
		return Str(x), nil
	case bool:
		return &Scalar{Tag: BoolTag, Value: strconv.FormatBool(x)}, nil
	case int:
		return &Scalar{Tag: IntTag, Value: strconv.Itoa(x)}, nil
	case int64:
		return &Scalar{Tag: IntTag, Value: strconv.FormatInt(x, 10)}, nil
	case uint64:
		return &Scalar{Tag: IntTag, Value: strconv.FormatUint(x, 10)}, nil
	case float64:
		return floatScalar(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return &Scalar{Tag: IntTag, Value: strconv.FormatInt(i, 10)}, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("convert number %q: %w", x.String(), err)
		}
		return floatScalar(f), nil
	case []any:
		seq := &Sequence{Items: make([]Node, 0, len(x))}
		for i, it := range x {
			n, err := FromAny(it)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq.Items = append(seq.Items, n)
		}
		return seq, nil
	case map[string]any:
		m := &Mapping{Fields: make(map[string]Node, len(x))}
		for k, f := range x {
			n, err := FromAny(f)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			m.Fields[k] = n
		}
		return m, nil
	default:
		return nil, fmt.Errorf("convert: unsupported value type %T", v)
	}
}

func floatScalar(f float64) *Scalar {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return &Scalar{Tag: IntTag, Value: strconv.FormatInt(int64(f), 10)}
	}
	return &Scalar{Tag: FloatTag, Value: strconv.FormatFloat(f, 'g', -1, 64)}
}

// ToAny converts n into plain Go values suitable for encoding/json. Scalars
// are typed by their tag; anything that does not parse stays a string.
func ToAny(n Node) any {
	switch v := n.(type) {
	case *Scalar:
		return scalarValue(v)
	case *Sequence:
		out := make([]any, len(v.Items))
		for i, it := range v.Items {
			out[i] = ToAny(it)
		}
		return out
	case *Mapping:
		out := make(map[string]any, len(v.Fields))
		for k, f := range v.Fields {
			out[k] = ToAny(f)
		}
		return out
	default:
		return nil
	}
}

func scalarValue(s *Scalar) any {
	switch s.Tag {
	case NullTag:
		return nil
	case BoolTag:
		return strings.EqualFold(s.Value, "true")
	case IntTag:
		if i, err := strconv.ParseInt(s.Value, 0, 64); err == nil {
			return i
		}
	case FloatTag:
		if f, err := strconv.ParseFloat(s.Value, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
	}
	return s.Value
}
