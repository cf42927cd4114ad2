package formula

import (
	"math"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/position"
)

// NodePosition is the rune span a node was parsed from.
type NodePosition struct {
	Start int
	End   int
}

// binding strength, lowest first. ToString parenthesizes a child only when
// its precedence would otherwise regroup it.
const (
	precAdditive = iota + 1
	precMultiplicative
	precPower
	precUnary
	precPercent
	precPrimary
)

// ASTNode is one node of a parsed expression.
type ASTNode interface {
	Eval(r Resolver) (float64, *Error)
	GetPosition() NodePosition
	ToString() string
	precedence() int
}

// NumberNode represents a numeric literal
type NumberNode struct {
	Value    float64
	Position NodePosition
}

func (n *NumberNode) Eval(Resolver) (float64, *Error) {
	return n.Value, nil
}

func (n *NumberNode) GetPosition() NodePosition { return n.Position }

func (n *NumberNode) ToString() string { return FormatNumber(n.Value) }

func (n *NumberNode) precedence() int { return precPrimary }

// CellRefNode represents a reference to a single cell. Ref keeps the
// upper-cased source text so that references outside the grid still render.
type CellRefNode struct {
	Ref      string
	Pos      position.Position
	Position NodePosition
}

func (n *CellRefNode) Eval(r Resolver) (float64, *Error) {
	if !n.Pos.IsValid() {
		return 0, NewError(ErrorCodeRef, "invalid cell reference: "+n.Ref)
	}
	return r.Resolve(n.Pos).scalar()
}

func (n *CellRefNode) GetPosition() NodePosition { return n.Position }

func (n *CellRefNode) ToString() string {
	if n.Pos.IsValid() {
		return n.Pos.String()
	}
	return n.Ref
}

func (n *CellRefNode) precedence() int { return precPrimary }

// RangeNode represents a rectangular block of cells. It is only valid as a
// function argument.
type RangeNode struct {
	Ref      string
	Start    position.Position
	End      position.Position
	Position NodePosition
}

func (n *RangeNode) Eval(Resolver) (float64, *Error) {
	return 0, NewError(ErrorCodeValue, "range used as a single value: "+n.Ref)
}

func (n *RangeNode) GetPosition() NodePosition { return n.Position }

func (n *RangeNode) ToString() string {
	if n.valid() {
		return n.Start.String() + ":" + n.End.String()
	}
	return n.Ref
}

func (n *RangeNode) precedence() int { return precPrimary }

func (n *RangeNode) valid() bool {
	return n.Start.IsValid() && n.End.IsValid()
}

// bounds returns the normalized corners so start is always less than or
// equal to end
func (n *RangeNode) bounds() (top, left, bottom, right int) {
	return min(n.Start.Row, n.End.Row), min(n.Start.Col, n.End.Col),
		max(n.Start.Row, n.End.Row), max(n.Start.Col, n.End.Col)
}

// cellCount is the number of positions covered by a valid range.
func (n *RangeNode) cellCount() int {
	top, left, bottom, right := n.bounds()
	return (bottom - top + 1) * (right - left + 1)
}

// Iterate yields every position in the range, row-major.
func (n *RangeNode) Iterate(yield func(position.Position) bool) {
	if !n.valid() {
		return
	}
	top, left, bottom, right := n.bounds()
	for row := top; row <= bottom; row++ {
		for col := left; col <= right; col++ {
			if !yield(position.Position{Row: row, Col: col}) {
				return
			}
		}
	}
}

// BinaryOpNode represents a binary operation
type BinaryOpNode struct {
	Op       BinaryOp
	Left     ASTNode
	Right    ASTNode
	Position NodePosition
}

func (n *BinaryOpNode) Eval(r Resolver) (float64, *Error) {
	left, err := n.Left.Eval(r)
	if err != nil {
		return 0, err
	}
	right, err := n.Right.Eval(r)
	if err != nil {
		return 0, err
	}

	var result float64
	switch n.Op {
	case BinOpAdd:
		result = left + right
	case BinOpSubtract:
		result = left - right
	case BinOpMultiply:
		result = left * right
	case BinOpDivide:
		if right == 0 {
			return 0, NewError(ErrorCodeDiv0, "Division by zero")
		}
		result = left / right
	case BinOpPower:
		result = math.Pow(left, right)
	default:
		return 0, NewError(ErrorCodeValue, "Unknown operator")
	}
	return finite(result)
}

func (n *BinaryOpNode) GetPosition() NodePosition { return n.Position }

func (n *BinaryOpNode) ToString() string {
	prec := n.precedence()
	left, right := n.Left.ToString(), n.Right.ToString()

	// power groups right-to-left, everything else left-to-right
	leftPrec, rightPrec := n.Left.precedence(), n.Right.precedence()
	if leftPrec < prec || (n.Op == BinOpPower && leftPrec == prec) {
		left = "(" + left + ")"
	}
	if rightPrec < prec || (n.Op != BinOpPower && rightPrec == prec) {
		right = "(" + right + ")"
	}
	return left + n.symbol() + right
}

func (n *BinaryOpNode) symbol() string {
	switch n.Op {
	case BinOpAdd:
		return "+"
	case BinOpSubtract:
		return "-"
	case BinOpMultiply:
		return "*"
	case BinOpDivide:
		return "/"
	case BinOpPower:
		return "^"
	}
	return "?"
}

func (n *BinaryOpNode) precedence() int {
	switch n.Op {
	case BinOpAdd, BinOpSubtract:
		return precAdditive
	case BinOpMultiply, BinOpDivide:
		return precMultiplicative
	default:
		return precPower
	}
}

// UnaryOpNode represents a unary operation
type UnaryOpNode struct {
	Op       UnaryOp
	Operand  ASTNode
	Position NodePosition
}

func (n *UnaryOpNode) Eval(r Resolver) (float64, *Error) {
	val, err := n.Operand.Eval(r)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case UnaryOpPlus:
		return val, nil
	case UnaryOpMinus:
		return -val, nil
	case UnaryOpPercent:
		return val / 100.0, nil
	default:
		return 0, NewError(ErrorCodeValue, "Unknown unary operator")
	}
}

func (n *UnaryOpNode) GetPosition() NodePosition { return n.Position }

func (n *UnaryOpNode) ToString() string {
	operand := n.Operand.ToString()
	if n.Operand.precedence() < n.precedence() {
		operand = "(" + operand + ")"
	}

	switch n.Op {
	case UnaryOpPercent:
		return operand + "%"
	case UnaryOpMinus:
		return "-" + operand
	default:
		return "+" + operand
	}
}

func (n *UnaryOpNode) precedence() int {
	if n.Op == UnaryOpPercent {
		return precPercent
	}
	return precUnary
}

// FunctionCallNode represents a function call
type FunctionCallNode struct {
	Name     string
	Args     []ASTNode
	Position NodePosition
}

func (n *FunctionCallNode) Eval(r Resolver) (float64, *Error) {
	args := make([]argument, len(n.Args))
	for i, argNode := range n.Args {
		if rng, ok := argNode.(*RangeNode); ok {
			args[i] = rangeArgument(rng, r)
			continue
		}
		v, err := argNode.Eval(r)
		args[i] = argument{number: v, err: err}
	}

	result, err := defaultFunctions.Call(n.Name, args...)
	if err != nil {
		return 0, err
	}
	return finite(result)
}

func (n *FunctionCallNode) GetPosition() NodePosition { return n.Position }

func (n *FunctionCallNode) ToString() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.ToString()
	}
	return n.Name + "(" + strings.Join(args, ",") + ")"
}

func (n *FunctionCallNode) precedence() int { return precPrimary }

// finite maps infinities and NaN to an arithmetic error.
func finite(v float64) (float64, *Error) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, NewError(ErrorCodeDiv0, "arithmetic result is not finite")
	}
	return v, nil
}

// walk visits n and every node below it, depth-first, left to right.
func walk(n ASTNode, visit func(ASTNode)) {
	visit(n)
	switch node := n.(type) {
	case *BinaryOpNode:
		walk(node.Left, visit)
		walk(node.Right, visit)
	case *UnaryOpNode:
		walk(node.Operand, visit)
	case *FunctionCallNode:
		for _, arg := range node.Args {
			walk(arg, visit)
		}
	}
}
