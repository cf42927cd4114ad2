package formula

import (
	"fmt"
	"math"
	"strings"
)

// argument is an evaluated function argument: either a single number (or
// the error evaluating it produced) or the operands of a range.
type argument struct {
	number  float64
	err     *Error
	isRange bool
	cells   []Operand
}

func rangeArgument(n *RangeNode, r Resolver) argument {
	if !n.valid() {
		return argument{isRange: true, err: NewError(ErrorCodeRef, "invalid range reference: "+n.Ref)}
	}
	cells := make([]Operand, 0, n.cellCount())
	for pos := range n.Iterate {
		cells = append(cells, r.Resolve(pos))
	}
	return argument{isRange: true, cells: cells}
}

// scalar returns a's single number; ranges are not accepted.
func (a argument) scalar() (float64, *Error) {
	if a.err != nil {
		return 0, a.err
	}
	if a.isRange {
		return 0, NewError(ErrorCodeValue, "expected a single value, got a range")
	}
	return a.number, nil
}

// numbers flattens a into the numbers it contributes to an aggregate.
// Inside a range, blank cells and text that does not read as a number are
// skipped; errors propagate.
func (a argument) numbers(yield func(float64)) *Error {
	if a.err != nil {
		return a.err
	}
	if !a.isRange {
		yield(a.number)
		return nil
	}
	for _, cell := range a.cells {
		switch cell.Kind {
		case OperandNumber:
			yield(cell.Number)
		case OperandText:
			if v, ok := ParseNumber(cell.Text); ok {
				yield(v)
			}
		case OperandError:
			_, err := cell.scalar()
			return err
		}
	}
	return nil
}

// BuiltInFunctions contains the numeric built-in functions
type BuiltInFunctions struct{}

var defaultFunctions = &BuiltInFunctions{}

// Call invokes a built-in function by name with the given arguments
func (bf *BuiltInFunctions) Call(name string, args ...argument) (float64, *Error) {
	switch strings.ToUpper(name) {
	case "SUM":
		return bf.SUM(args...)
	case "AVERAGE":
		return bf.AVERAGE(args...)
	case "COUNT":
		return bf.COUNT(args...)
	case "MAX":
		return bf.MAX(args...)
	case "MIN":
		return bf.MIN(args...)
	case "ABS":
		return bf.unary("ABS", math.Abs, args...)
	case "FLOOR":
		return bf.unary("FLOOR", math.Floor, args...)
	case "CEILING":
		return bf.unary("CEILING", math.Ceil, args...)
	case "ROUND":
		return bf.ROUND(args...)
	case "SQRT":
		return bf.SQRT(args...)
	case "POWER":
		return bf.POWER(args...)
	case "MOD":
		return bf.MOD(args...)
	case "PI":
		return bf.PI(args...)
	default:
		return 0, NewError(ErrorCodeName, fmt.Sprintf("Unknown function: %s", name))
	}
}

// IsBuiltIn reports whether name is a known function.
func IsBuiltIn(name string) bool {
	switch strings.ToUpper(name) {
	case "SUM", "AVERAGE", "COUNT", "MAX", "MIN", "ABS", "FLOOR", "CEILING",
		"ROUND", "SQRT", "POWER", "MOD", "PI":
		return true
	}
	return false
}

func (bf *BuiltInFunctions) SUM(args ...argument) (float64, *Error) {
	sum := 0.0
	for _, arg := range args {
		if err := arg.numbers(func(v float64) { sum += v }); err != nil {
			return 0, err
		}
	}
	return sum, nil
}

func (bf *BuiltInFunctions) AVERAGE(args ...argument) (float64, *Error) {
	sum := 0.0
	count := 0
	for _, arg := range args {
		err := arg.numbers(func(v float64) {
			sum += v
			count++
		})
		if err != nil {
			return 0, err
		}
	}

	if count == 0 {
		return 0, NewError(ErrorCodeDiv0, "Division by zero")
	}
	return sum / float64(count), nil
}

// COUNT counts numbers and never fails; error values are simply not counted.
func (bf *BuiltInFunctions) COUNT(args ...argument) (float64, *Error) {
	count := 0
	for _, arg := range args {
		if arg.err != nil {
			continue
		}
		if !arg.isRange {
			count++
			continue
		}
		for _, cell := range arg.cells {
			if cell.Kind == OperandNumber || cell.isNumericText() {
				count++
			}
		}
	}
	return float64(count), nil
}

func (bf *BuiltInFunctions) MAX(args ...argument) (float64, *Error) {
	return bf.extreme(func(a, b float64) bool { return a > b }, args...)
}

func (bf *BuiltInFunctions) MIN(args ...argument) (float64, *Error) {
	return bf.extreme(func(a, b float64) bool { return a < b }, args...)
}

// extreme returns the number ranked first by better, or 0 when there are
// no numbers at all
func (bf *BuiltInFunctions) extreme(better func(a, b float64) bool, args ...argument) (float64, *Error) {
	result := 0.0
	found := false
	for _, arg := range args {
		err := arg.numbers(func(v float64) {
			if !found || better(v, result) {
				result = v
				found = true
			}
		})
		if err != nil {
			return 0, err
		}
	}
	return result, nil
}

func (bf *BuiltInFunctions) unary(name string, fn func(float64) float64, args ...argument) (float64, *Error) {
	if len(args) != 1 {
		return 0, NewError(ErrorCodeNA, name+" requires exactly 1 argument")
	}
	num, err := args[0].scalar()
	if err != nil {
		return 0, err
	}
	return fn(num), nil
}

func (bf *BuiltInFunctions) ROUND(args ...argument) (float64, *Error) {
	if len(args) < 1 || len(args) > 2 {
		return 0, NewError(ErrorCodeNA, "ROUND requires 1 or 2 arguments")
	}

	num, err := args[0].scalar()
	if err != nil {
		return 0, err
	}

	places := 0.0
	if len(args) == 2 {
		if places, err = args[1].scalar(); err != nil {
			return 0, err
		}
	}

	multiplier := math.Pow(10, math.Trunc(places))
	return math.Round(num*multiplier) / multiplier, nil
}

func (bf *BuiltInFunctions) SQRT(args ...argument) (float64, *Error) {
	if len(args) != 1 {
		return 0, NewError(ErrorCodeNA, "SQRT requires exactly 1 argument")
	}
	num, err := args[0].scalar()
	if err != nil {
		return 0, err
	}
	if num < 0 {
		return 0, NewError(ErrorCodeNum, "SQRT requires a non-negative argument")
	}
	return math.Sqrt(num), nil
}

func (bf *BuiltInFunctions) POWER(args ...argument) (float64, *Error) {
	if len(args) != 2 {
		return 0, NewError(ErrorCodeNA, "POWER requires exactly 2 arguments")
	}
	base, err := args[0].scalar()
	if err != nil {
		return 0, err
	}
	exp, err := args[1].scalar()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (bf *BuiltInFunctions) MOD(args ...argument) (float64, *Error) {
	if len(args) != 2 {
		return 0, NewError(ErrorCodeNA, "MOD requires exactly 2 arguments")
	}
	dividend, err := args[0].scalar()
	if err != nil {
		return 0, err
	}
	divisor, err := args[1].scalar()
	if err != nil {
		return 0, err
	}
	if divisor == 0 {
		return 0, NewError(ErrorCodeDiv0, "Division by zero")
	}
	return math.Mod(dividend, divisor), nil
}

func (bf *BuiltInFunctions) PI(args ...argument) (float64, *Error) {
	if len(args) != 0 {
		return 0, NewError(ErrorCodeNA, "PI takes no arguments")
	}
	return math.Pi, nil
}
