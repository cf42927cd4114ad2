package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/position"
)

// MaxRangeCells bounds how many cells a single range may cover.
const MaxRangeCells = 1 << 16

// Parser parses tokens into an AST
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a new parser with the given tokens
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the tokens into an AST
func (p *Parser) Parse() (ASTNode, *ParseError) {
	if len(p.tokens) == 0 {
		return nil, &ParseError{Message: "no tokens to parse"}
	}

	node, err := p.parseAddition()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, p.errorf(tok, "unexpected token after expression: %s", tok.Value)
	}
	return node, nil
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) errorf(tok Token, format string, args ...any) *ParseError {
	return &ParseError{Pos: tok.Pos, Message: fmt.Sprintf(format, args...)}
}

func span(left, right ASTNode) NodePosition {
	return NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End}
}

// parseAddition handles addition and subtraction (lowest precedence)
func (p *Parser) parseAddition() (ASTNode, *ParseError) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp {
			return left, nil
		}

		var op BinaryOp
		switch tok.Value {
		case "+":
			op = BinOpAdd
		case "-":
			op = BinOpSubtract
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right, Position: span(left, right)}
	}
}

// parseMultiplication handles multiplication and division
func (p *Parser) parseMultiplication() (ASTNode, *ParseError) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp {
			return left, nil
		}

		var op BinaryOp
		switch tok.Value {
		case "*":
			op = BinOpMultiply
		case "/":
			op = BinOpDivide
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Op: op, Left: left, Right: right, Position: span(left, right)}
	}
}

// parsePower handles exponentiation
func (p *Parser) parsePower() (ASTNode, *ParseError) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	// right-associative
	if tok := p.peek(); tok.Type == TokenBinaryOp && tok.Value == "^" {
		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return &BinaryOpNode{Op: BinOpPower, Left: left, Right: right, Position: span(left, right)}, nil
	}

	return left, nil
}

// parseUnary handles prefix operators
func (p *Parser) parseUnary() (ASTNode, *ParseError) {
	tok := p.peek()
	if tok.Type != TokenUnaryPrefixOp {
		return p.parsePostfix()
	}

	op := UnaryOpPlus
	if tok.Value == "-" {
		op = UnaryOpMinus
	}

	p.pos++
	operand, err := p.parseUnary() // recurse for chained unary operators
	if err != nil {
		return nil, err
	}

	return &UnaryOpNode{
		Op:       op,
		Operand:  operand,
		Position: NodePosition{Start: tok.Pos, End: operand.GetPosition().End},
	}, nil
}

// parsePostfix handles postfix operators (percent)
func (p *Parser) parsePostfix() (ASTNode, *ParseError) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenUnaryPostfixOp {
			return node, nil
		}
		p.pos++
		node = &UnaryOpNode{
			Op:       UnaryOpPercent,
			Operand:  node,
			Position: NodePosition{Start: node.GetPosition().Start, End: tok.Pos + 1},
		}
	}
}

// parsePrimary handles primary expressions (literals, references,
// functions, parentheses)
func (p *Parser) parsePrimary() (ASTNode, *ParseError) {
	tok := p.peek()

	switch tok.Type {
	case TokenNumber:
		p.pos++
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid number: %s", tok.Value)
		}
		return &NumberNode{
			Value:    val,
			Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
		}, nil

	case TokenCell:
		p.pos++
		return p.parseCellReference(tok), nil

	case TokenRange:
		return nil, p.errorf(tok, "range %s is only allowed as a function argument", tok.Value)

	case TokenFunction:
		return p.parseFunctionCall()

	case TokenLeftParen:
		p.pos++
		node, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		if next := p.peek(); next.Type != TokenRightParen {
			return nil, p.errorf(next, "expected closing parenthesis")
		}
		p.pos++
		return node, nil

	case TokenEOF:
		return nil, p.errorf(tok, "unexpected end of expression")

	default:
		return nil, p.errorf(tok, "unexpected token: %s", tok.Value)
	}
}

// parseFunctionCall parses a function call
func (p *Parser) parseFunctionCall() (ASTNode, *ParseError) {
	funcTok := p.peek()
	p.pos++

	if tok := p.peek(); tok.Type != TokenLeftParen {
		return nil, p.errorf(tok, "expected '(' after function name")
	}
	p.pos++

	args := []ASTNode{}

	// check for empty argument list
	if tok := p.peek(); tok.Type == TokenRightParen {
		p.pos++
		return &FunctionCallNode{
			Name:     funcTok.Value,
			Args:     args,
			Position: NodePosition{Start: funcTok.Pos, End: tok.Pos + 1},
		}, nil
	}

	for {
		arg, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		tok := p.peek()
		switch tok.Type {
		case TokenRightParen:
			p.pos++
			return &FunctionCallNode{
				Name:     funcTok.Value,
				Args:     args,
				Position: NodePosition{Start: funcTok.Pos, End: tok.Pos + 1},
			}, nil
		case TokenComma:
			p.pos++
		case TokenEOF:
			return nil, p.errorf(tok, "unexpected end in function arguments")
		default:
			return nil, p.errorf(tok, "expected ',' or ')' in function arguments")
		}
	}
}

// parseArgument parses one function argument. A range must stand alone.
func (p *Parser) parseArgument() (ASTNode, *ParseError) {
	tok := p.peek()
	if tok.Type != TokenRange {
		return p.parseAddition()
	}

	p.pos++
	if next := p.peek(); next.Type != TokenComma && next.Type != TokenRightParen {
		return nil, p.errorf(tok, "range %s is only allowed as a whole function argument", tok.Value)
	}
	return p.parseRange(tok)
}

// parseCellReference turns a cell token into a CellRefNode. Addresses
// outside the grid are kept and evaluate to #REF!.
func (p *Parser) parseCellReference(tok Token) ASTNode {
	pos, ok := position.Lookup(tok.Value)
	if !ok || !pos.IsValid() {
		pos = position.None
	}
	return &CellRefNode{
		Ref:      tok.Value,
		Pos:      pos,
		Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
	}
}

// parseRange parses a range token into a RangeNode
func (p *Parser) parseRange(tok Token) (ASTNode, *ParseError) {
	parts := strings.Split(tok.Value, ":")
	if len(parts) != 2 {
		return nil, p.errorf(tok, "invalid range format: %s", tok.Value)
	}

	start := p.parseCellReference(Token{Value: parts[0]}).(*CellRefNode).Pos
	end := p.parseCellReference(Token{Value: parts[1]}).(*CellRefNode).Pos

	node := &RangeNode{
		Ref:      tok.Value,
		Start:    start,
		End:      end,
		Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
	}
	if node.valid() && node.cellCount() > MaxRangeCells {
		return nil, p.errorf(tok, "range %s covers more than %d cells", tok.Value, MaxRangeCells)
	}
	return node, nil
}
