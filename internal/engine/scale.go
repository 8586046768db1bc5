package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/tetragramaton/smh-meter/internal/register"
)

// Scale converts a decoded value into engineering units:
// raw * Factor * 10^-Decimals. Only numeric values can be scaled.
func Scale(raw any, s *register.Scale) (float64, error) {
	if s == nil {
		return 0, ErrScalingUndefined
	}
	var d decimal.Decimal
	switch v := raw.(type) {
	case int64:
		d = decimal.NewFromInt(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return v, nil
		}
		d = decimal.NewFromFloat(v)
	default:
		return 0, fmt.Errorf("%w: %T is not numeric", ErrScalingUndefined, raw)
	}
	return d.Mul(decimal.NewFromFloat(s.Factor)).Shift(-s.Decimals).InexactFloat64(), nil
}

// Unscale is the inverse of Scale: value * 10^Decimals / Factor.
func Unscale(value float64, s *register.Scale) (float64, error) {
	if s == nil {
		return 0, ErrScalingUndefined
	}
	if s.Factor == 0 {
		return 0, fmt.Errorf("%w: zero factor", ErrScalingUndefined)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("cannot unscale %v", value)
	}
	d := decimal.NewFromFloat(value).Shift(s.Decimals)
	return d.Div(decimal.NewFromFloat(s.Factor)).InexactFloat64(), nil
}
