package core

import (
	"fmt"
)

// builtinFunc is the shape every built-in Runnable implements. Builtins
// are Go closures compiled into the binary, the simplest of the three
// registerable code kinds.
type builtinFunc func(ctx *ExecutionContext, input any) (any, error)

// builtinRunnable adapts a builtinFunc to Runnable.
type builtinRunnable struct {
	fn builtinFunc
}

func (b builtinRunnable) Run(ctx *ExecutionContext, input any) (any, error) {
	return b.fn(ctx, input)
}

// NewBuiltin wraps fn as a registerable Runnable.
func NewBuiltin(fn builtinFunc) Runnable {
	return builtinRunnable{fn: fn}
}

// FibonacciBuiltin computes the Fibonacci sequence to n terms, recording an
// init step, one iterate step per subsequent term, and a complete step.
// Input is {"n": <count>}.
func FibonacciBuiltin() Runnable {
	return NewBuiltin(func(ctx *ExecutionContext, input any) (any, error) {
		n, err := intField(input, "n")
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			_, v := ctx.Step("init", map[string]any{"n": n}, map[string]any{"sequence": []int{}})
			if v != nil {
				return nil, v
			}
			return map[string]any{"sequence": []int{}, "sum": 0}, nil
		}

		// Seed with the first term only; every subsequent term (including
		// the second, fib(1)=1) is produced by an "iterate" step, so an
		// n-term sequence emits exactly n-1 iterate steps.
		sequence := make([]int, 0, n)
		sequence = append(sequence, 0)
		if _, v := ctx.Step("init", map[string]any{"n": n}, map[string]any{"sequence": append([]int{}, sequence...)}); v != nil {
			return nil, v
		}

		for i := 1; i < n; i++ {
			var next int
			if i == 1 {
				next = 1
			} else {
				next = sequence[i-1] + sequence[i-2]
			}
			sequence = append(sequence, next)
			if _, v := ctx.Step("iterate", map[string]any{"i": i}, map[string]any{"value": next}); v != nil {
				return nil, v
			}
		}

		sum := 0
		for _, val := range sequence {
			sum += val
		}

		output := map[string]any{"sequence": sequence, "sum": sum}
		if _, v := ctx.Step("complete", nil, output); v != nil {
			return nil, v
		}
		return output, nil
	})
}

// BubbleSortBuiltin sorts a numeric array, recording one step per
// comparison and one branch level per pass. Input is {"values": [...]}.
func BubbleSortBuiltin() Runnable {
	return NewBuiltin(func(ctx *ExecutionContext, input any) (any, error) {
		values, err := numberSliceField(input, "values")
		if err != nil {
			return nil, err
		}
		if _, v := ctx.Step("init", map[string]any{"length": len(values)}, nil); v != nil {
			return nil, v
		}

		n := len(values)
		for i := 0; i < n; i++ {
			if v := ctx.EnterBranch(); v != nil {
				return nil, v
			}
			swapped := false
			for j := 0; j < n-i-1; j++ {
				if values[j] > values[j+1] {
					values[j], values[j+1] = values[j+1], values[j]
					swapped = true
				}
				if _, v := ctx.Step("compare", map[string]any{"i": i, "j": j}, map[string]any{"swapped": swapped}); v != nil {
					return nil, v
				}
			}
			ctx.ExitBranch()
			if !swapped {
				break
			}
		}

		output := map[string]any{"sorted": values}
		if _, v := ctx.Step("complete", nil, output); v != nil {
			return nil, v
		}
		return output, nil
	})
}

func intField(input any, field string) (int, error) {
	m, ok := input.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("input is not an object")
	}
	raw, ok := m[field]
	if !ok {
		return 0, fmt.Errorf("input missing field %q", field)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return parseIntLike(v, field)
	}
}

func numberSliceField(input any, field string) ([]int, error) {
	m, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("input is not an object")
	}
	raw, ok := m[field]
	if !ok {
		return nil, fmt.Errorf("input missing field %q", field)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is not an array", field)
	}
	out := make([]int, 0, len(list))
	for _, elem := range list {
		switch v := elem.(type) {
		case int:
			out = append(out, v)
		case float64:
			out = append(out, int(v))
		default:
			n, err := parseIntLike(v, field)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// parseIntLike handles json.Number, the shape decodeCanonical produces for
// numeric values (see core/canonical.go).
func parseIntLike(v any, field string) (int, error) {
	type numberLike interface{ Int64() (int64, error) }
	if nl, ok := v.(numberLike); ok {
		n, err := nl.Int64()
		if err != nil {
			return 0, fmt.Errorf("field %q is not an integer: %w", field, err)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("field %q has unsupported type %T", field, v)
}
