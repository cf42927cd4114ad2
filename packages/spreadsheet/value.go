package spreadsheet

import (
	"github.com/vogtb/go-spreadsheet/packages/formula"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	ValueText ValueKind = iota
	ValueNumber
	ValueError
)

// Value is the computed value of a cell. Values are comparable with ==.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
	Code   formula.ErrorCode
}

func TextValue(s string) Value { return Value{Kind: ValueText, Text: s} }

func NumberValue(v float64) Value { return Value{Kind: ValueNumber, Number: v} }

func ErrorValue(code formula.ErrorCode) Value { return Value{Kind: ValueError, Code: code} }

// String renders the value the way it is printed in a grid.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return formula.FormatNumber(v.Number)
	case ValueError:
		return v.Code.String()
	default:
		return v.Text
	}
}

func (v Value) IsError() bool { return v.Kind == ValueError }

// operand converts v for use by a formula that references the cell.
func (v Value) operand() formula.Operand {
	switch v.Kind {
	case ValueNumber:
		return formula.NumberOperand(v.Number)
	case ValueError:
		return formula.ErrorOperand(formula.NewError(v.Code, ""))
	default:
		if v.Text == "" {
			return formula.BlankOperand()
		}
		return formula.TextOperand(v.Text)
	}
}
