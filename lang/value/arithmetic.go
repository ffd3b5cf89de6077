package value

import "fmt"

// Add implements OpAdd: number+number is sum, string+string is
// concatenation, any other combination is a runtime type error. Both
// operand types are checked explicitly; the reference implementation's
// source repeats a peek(0) guard where peek(1) was intended, so this
// implementation deliberately inspects both x and y rather than assuming
// the first check covers the pair (spec section 9).
func Add(x, y Value) (Value, error) {
	x, y = Deref(x), Deref(y)
	if xn, ok := x.(Number); ok {
		if yn, ok := y.(Number); ok {
			return xn + yn, nil
		}
	}
	if xs, ok := x.(String); ok {
		if ys, ok := y.(String); ok {
			return xs + ys, nil
		}
	}
	return nil, fmt.Errorf("operands must be two numbers or two strings, got %s and %s", x.Type(), y.Type())
}

// Subtract implements OpSubtract.
func Subtract(x, y Value) (Value, error) {
	xn, yn, err := numericOperands("subtract", x, y)
	if err != nil {
		return nil, err
	}
	return xn - yn, nil
}

// Multiply implements OpMultiply.
func Multiply(x, y Value) (Value, error) {
	xn, yn, err := numericOperands("multiply", x, y)
	if err != nil {
		return nil, err
	}
	return xn * yn, nil
}

// Divide implements OpDivide.
func Divide(x, y Value) (Value, error) {
	xn, yn, err := numericOperands("divide", x, y)
	if err != nil {
		return nil, err
	}
	return xn / yn, nil
}

func numericOperands(op string, x, y Value) (Number, Number, error) {
	x, y = Deref(x), Deref(y)
	xn, xok := x.(Number)
	yn, yok := y.(Number)
	if !xok || !yok {
		return 0, 0, fmt.Errorf("operands must be numbers, got %s and %s", x.Type(), y.Type())
	}
	return xn, yn, nil
}

// Negate implements OpNegate: numeric negation of its sole operand.
func Negate(x Value) (Value, error) {
	xn, ok := Deref(x).(Number)
	if !ok {
		return nil, fmt.Errorf("operand must be a number, got %s", Deref(x).Type())
	}
	return -xn, nil
}

// Not implements OpNot: unlike general truthiness, it strictly requires a
// bool operand rather than negating any value's truthiness.
func Not(x Value) (Value, error) {
	xb, ok := Deref(x).(Bool)
	if !ok {
		return nil, fmt.Errorf("operand must be a boolean, got %s", Deref(x).Type())
	}
	return !xb, nil
}

// Compare implements OpLess/OpGreater: both operands must be numbers.
// Returns cmp<0 if x<y, 0 if equal, >0 if x>y.
func Compare(x, y Value) (int, error) {
	xn, yn, err := numericOperands("compare", x, y)
	if err != nil {
		return 0, err
	}
	switch {
	case xn < yn:
		return -1, nil
	case xn > yn:
		return 1, nil
	default:
		return 0, nil
	}
}
