package formula

import (
	"fmt"
	"math"

	"quotedesk/internal"
)

// EvalError is an arithmetic failure during evaluation, e.g. division by
// zero. It is fatal for the single pricing attempt and never retried
// automatically.
type EvalError struct {
	Formula string
	Msg     string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("formula evaluation error in %q: %s", e.Formula, e.Msg)
}

// BoundsViolation means the requested dimensions fall outside the product's
// configured limits. It is a distinct outcome, not an arithmetic error, and
// needs a different customer-facing message than a price.
type BoundsViolation struct {
	Field string
	Value float64
	Limit float64
	Below bool
}

func (e *BoundsViolation) Error() string {
	if e.Below {
		return fmt.Sprintf("%s %.2f is below the minimum of %.2f", e.Field, e.Value, e.Limit)
	}
	return fmt.Sprintf("%s %.2f exceeds the maximum of %.2f", e.Field, e.Value, e.Limit)
}

// Bounds are the optional dimension limits configured on a product.
type Bounds struct {
	MinArea   *float64
	MaxArea   *float64
	MinLength *float64
	MaxLength *float64
	MinWidth  *float64
	MaxWidth  *float64
}

func (b Bounds) check(length, width, area float64) error {
	checks := []struct {
		field string
		value float64
		min   *float64
		max   *float64
	}{
		{"area", area, b.MinArea, b.MaxArea},
		{"length", length, b.MinLength, b.MaxLength},
		{"width", width, b.MinWidth, b.MaxWidth},
	}
	for _, c := range checks {
		if c.min != nil && c.value < *c.min {
			return &BoundsViolation{Field: c.field, Value: c.value, Limit: *c.min, Below: true}
		}
		if c.max != nil && c.value > *c.max {
			return &BoundsViolation{Field: c.field, Value: c.value, Limit: *c.max}
		}
	}
	return nil
}

// Eval walks the AST with the given variable bindings.
func (c *Compiled) Eval(bindings map[string]float64) (float64, error) {
	result, err := c.root.eval(bindings)
	if err != nil {
		if ee, ok := err.(*EvalError); ok && ee.Formula == "" {
			ee.Formula = c.Source
		}
		return 0, err
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, &EvalError{Formula: c.Source, Msg: "result is not a finite number"}
	}
	return result, nil
}

// Price binds the pricing variables, enforces bounds, evaluates the formula,
// applies the minimum-order floor and rounds to currency precision. Area is
// always derived as length*width.
func Price(c *Compiled, length, width, basePrice, rate, minOrder float64, bounds Bounds) (internal.PriceResult, error) {
	area := length * width
	result := internal.PriceResult{
		AreaSqInches: area,
		MinOrder:     minOrder,
		Bindings: map[string]float64{
			"area":       area,
			"length":     length,
			"width":      width,
			"base_price": basePrice,
			"rate":       rate,
		},
	}

	if err := bounds.check(length, width, area); err != nil {
		return result, err
	}
	result.WithinBounds = true

	computed, err := c.Eval(result.Bindings)
	if err != nil {
		return result, err
	}
	if computed < minOrder {
		computed = minOrder
	}
	if computed < 0 {
		computed = 0
	}

	result.TotalPrice = RoundCurrency(computed)
	if area > 0 {
		result.UnitPrice = roundHalfUp(result.TotalPrice/area, 4)
	}
	return result, nil
}

// RoundCurrency rounds to 2 decimal places, half away from zero.
func RoundCurrency(v float64) float64 {
	return roundHalfUp(v, 2)
}

func roundHalfUp(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Floor(v*scale+0.5) / scale
}

func (n numberNode) eval(map[string]float64) (float64, error) {
	return n.value, nil
}

func (n varNode) eval(bindings map[string]float64) (float64, error) {
	value, ok := bindings[n.name]
	if !ok {
		return 0, &EvalError{Msg: fmt.Sprintf("variable %s is not bound", n.name)}
	}
	return value, nil
}

func (n unaryNode) eval(bindings map[string]float64) (float64, error) {
	value, err := n.operand.eval(bindings)
	if err != nil {
		return 0, err
	}
	return -value, nil
}

func (n binaryNode) eval(bindings map[string]float64) (float64, error) {
	left, err := n.left.eval(bindings)
	if err != nil {
		return 0, err
	}
	right, err := n.right.eval(bindings)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case tokPlus:
		return left + right, nil
	case tokMinus:
		return left - right, nil
	case tokStar:
		return left * right, nil
	case tokSlash:
		if right == 0 {
			return 0, &EvalError{Msg: "division by zero"}
		}
		return left / right, nil
	default:
		return 0, &EvalError{Msg: "unsupported operator"}
	}
}

func (n callNode) eval(bindings map[string]float64) (float64, error) {
	arg1, err := n.arg1.eval(bindings)
	if err != nil {
		return 0, err
	}
	arg2, err := n.arg2.eval(bindings)
	if err != nil {
		return 0, err
	}
	if n.fn == "min" {
		return math.Min(arg1, arg2), nil
	}
	return math.Max(arg1, arg2), nil
}
