package formula

import (
	"math"
	"strconv"

	"github.com/vogtb/go-spreadsheet/packages/position"
)

// OperandKind tags what a referenced cell contributes to an expression.
type OperandKind uint8

const (
	OperandBlank OperandKind = iota
	OperandNumber
	OperandText
	OperandError
)

// Operand is the value of a referenced cell as seen by a formula.
type Operand struct {
	Kind   OperandKind
	Number float64
	Text   string
	Err    *Error
}

func BlankOperand() Operand { return Operand{Kind: OperandBlank} }

func NumberOperand(v float64) Operand { return Operand{Kind: OperandNumber, Number: v} }

func TextOperand(s string) Operand { return Operand{Kind: OperandText, Text: s} }

func ErrorOperand(err *Error) Operand { return Operand{Kind: OperandError, Err: err} }

// scalar converts an operand used directly in arithmetic. Blank is zero and
// text must hold a number.
func (o Operand) scalar() (float64, *Error) {
	switch o.Kind {
	case OperandBlank:
		return 0, nil
	case OperandNumber:
		return o.Number, nil
	case OperandText:
		if o.Text == "" {
			return 0, nil
		}
		if v, ok := ParseNumber(o.Text); ok {
			return v, nil
		}
		return 0, NewError(ErrorCodeValue, "text is not a number: "+o.Text)
	case OperandError:
		if o.Err == nil {
			return 0, NewError(ErrorCodeOther, "")
		}
		return 0, o.Err
	default:
		return 0, NewError(ErrorCodeValue, "")
	}
}

func (o Operand) isNumericText() bool {
	if o.Kind != OperandText {
		return false
	}
	_, ok := ParseNumber(o.Text)
	return ok
}

// Resolver looks up the current value of a cell during evaluation.
type Resolver interface {
	Resolve(pos position.Position) Operand
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(pos position.Position) Operand

func (f ResolverFunc) Resolve(pos position.Position) Operand {
	return f(pos)
}

// ParseNumber reports whether text is a single numeric literal, optionally
// signed and surrounded by whitespace, and returns its value.
func ParseNumber(text string) (float64, bool) {
	tokens, perr := NewLexerForNumber(text).Tokenize()
	if perr != nil {
		return 0, false
	}

	sign := 1.0
	i := 0
	if len(tokens) > 0 && tokens[0].Type == TokenUnaryPrefixOp {
		if tokens[0].Value == "-" {
			sign = -1.0
		}
		i = 1
	}

	// exactly one number, then EOF
	if len(tokens) != i+2 || tokens[i].Type != TokenNumber {
		return 0, false
	}

	v, err := strconv.ParseFloat(tokens[i].Value, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return sign * v, true
}

// FormatNumber renders v in its shortest form, without an exponent for
// integers of moderate size.
func FormatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
