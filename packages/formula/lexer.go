package formula

import (
	"fmt"
	"strings"
)

// TokenType represents different types of tokens in formulas
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenCell
	TokenRange
	TokenFunction
	TokenUnaryPrefixOp
	TokenUnaryPostfixOp
	TokenBinaryOp
	TokenComma
	TokenLeftParen
	TokenRightParen
	TokenWhitespace
	TokenError
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of expression"
	case TokenNumber:
		return "number"
	case TokenCell:
		return "cell reference"
	case TokenRange:
		return "range"
	case TokenFunction:
		return "function"
	case TokenUnaryPrefixOp, TokenUnaryPostfixOp, TokenBinaryOp:
		return "operator"
	case TokenComma:
		return "','"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	default:
		return "token"
	}
}

// BinaryOp represents binary operators in AST nodes
type BinaryOp int

const (
	BinOpAdd BinaryOp = iota
	BinOpSubtract
	BinOpMultiply
	BinOpDivide
	BinOpPower
)

// UnaryOp represents unary operators in AST nodes
type UnaryOp int

const (
	UnaryOpPlus UnaryOp = iota
	UnaryOpMinus
	UnaryOpPercent
)

// character classification constants. slightly easier to read.
const (
	charNull       = 0
	charTab        = '\t'
	charNewline    = '\n'
	charReturn     = '\r'
	charSpace      = ' '
	charPercent    = '%'
	charLParen     = '('
	charRParen     = ')'
	charAsterisk   = '*'
	charPlus       = '+'
	charComma      = ','
	charMinus      = '-'
	charPeriod     = '.'
	charSlash      = '/'
	charColon      = ':'
	charCaret      = '^'
	charUnderscore = '_'
)

// TokenState represents the lexer state for validation
type TokenState int

const (
	StateStart TokenState = iota
	StateAfterValue
	StateAfterOperator
	StateAfterLeftParen
	StateAfterRightParen
	StateAfterComma
	StateAfterFunction
)

// tokenTransitions maps the current state to valid next token types
var tokenTransitions = map[TokenState]map[TokenType]bool{
	StateStart: {
		TokenUnaryPrefixOp: true, // unary +/-
		TokenNumber:        true,
		TokenCell:          true,
		TokenRange:         true, // rejected by the parser with a better message
		TokenFunction:      true,
		TokenLeftParen:     true,
	},
	StateAfterValue: { // after number, cell, range
		TokenBinaryOp:       true,
		TokenUnaryPostfixOp: true, // for %
		TokenRightParen:     true,
		TokenComma:          true, // only if in function
		// whitespace is significant - no consecutive values
	},
	StateAfterOperator: {
		TokenNumber:        true,
		TokenCell:          true,
		TokenFunction:      true,
		TokenLeftParen:     true,
		TokenUnaryPrefixOp: true, // only unary after binary
	},
	StateAfterLeftParen: {
		TokenNumber:        true,
		TokenCell:          true,
		TokenRange:         true, // allow ranges in functions
		TokenFunction:      true,
		TokenLeftParen:     true, // nested
		TokenUnaryPrefixOp: true,
		TokenRightParen:    true, // empty parens for arg-less functions like PI()
	},
	StateAfterRightParen: {
		TokenBinaryOp:       true,
		TokenUnaryPostfixOp: true,
		TokenRightParen:     true, // if nested
		TokenComma:          true, // if in function
	},
	StateAfterComma: { // only valid in function context
		TokenNumber:        true,
		TokenCell:          true,
		TokenRange:         true, // allow ranges in function arguments
		TokenFunction:      true,
		TokenLeftParen:     true,
		TokenUnaryPrefixOp: true,
	},
	StateAfterFunction: {
		TokenLeftParen: true,
	},
}

// Token represents a lexical token with position information
type Token struct {
	Type  TokenType
	Value string
	Pos   int // rune offset in input
}

// Lexer tokenizes formula expressions. The formula marker is not part of
// the input.
type Lexer struct {
	runes      []rune // UTF-8 aware representation
	pos        int
	state      TokenState
	parenDepth int
	tokens     []Token
	context    *LexerContext
}

// LexerContext restricts which tokens a specialized lexer accepts.
type LexerContext struct {
	InitialState   TokenState
	ExpectedTokens map[TokenType]bool
}

// NewLexer creates a lexer for a full expression
func NewLexer(input string) *Lexer {
	return NewLexerWithContext(input, &LexerContext{InitialState: StateStart})
}

// NewLexerWithContext creates a new lexer with specific context
func NewLexerWithContext(input string, context *LexerContext) *Lexer {
	return &Lexer{
		runes:   []rune(input),
		state:   context.InitialState,
		context: context,
	}
}

// NewLexerForNumber creates a lexer specifically for parsing numbers
func NewLexerForNumber(input string) *Lexer {
	return NewLexerWithContext(input, &LexerContext{
		InitialState: StateStart,
		ExpectedTokens: map[TokenType]bool{
			TokenUnaryPrefixOp: true, // for unary +/-
			TokenNumber:        true,
		},
	})
}

// Tokenize tokenizes the entire input. The returned slice always ends with
// a TokenEOF on success.
func (l *Lexer) Tokenize() ([]Token, *ParseError) {
	for {
		tok := l.nextToken()
		if tok.Type == TokenEOF {
			break
		}
		if tok.Type == TokenError {
			return nil, &ParseError{Pos: tok.Pos, Message: tok.Value}
		}
		if !l.validateTransition(tok.Type) {
			return nil, &ParseError{Pos: tok.Pos, Message: fmt.Sprintf("unexpected %s %q", tok.Type, tok.Value)}
		}
		l.tokens = append(l.tokens, tok)
		l.updateState(tok.Type)
	}

	if l.parenDepth > 0 {
		return nil, &ParseError{Pos: l.pos, Message: "unbalanced parentheses: missing closing parenthesis"}
	}

	l.tokens = append(l.tokens, Token{Type: TokenEOF, Pos: l.pos})
	return l.tokens, nil
}

// validateTransition checks if the token type is valid in current state
func (l *Lexer) validateTransition(tokenType TokenType) bool {
	if l.context != nil && len(l.context.ExpectedTokens) > 0 {
		return l.context.ExpectedTokens[tokenType]
	}

	validTokens, exists := tokenTransitions[l.state]
	if !exists {
		return false
	}
	return validTokens[tokenType]
}

// updateState updates the lexer state based on the token type
func (l *Lexer) updateState(tokenType TokenType) {
	switch tokenType {
	case TokenNumber, TokenCell, TokenRange:
		l.state = StateAfterValue
	case TokenUnaryPrefixOp, TokenBinaryOp:
		l.state = StateAfterOperator
	case TokenUnaryPostfixOp:
		// postfix operators leave the state alone
	case TokenLeftParen:
		l.state = StateAfterLeftParen
	case TokenRightParen:
		l.state = StateAfterRightParen
	case TokenComma:
		l.state = StateAfterComma
	case TokenFunction:
		l.state = StateAfterFunction
	}
}

// nextToken returns the next token from the input
func (l *Lexer) nextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.runes) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	startPos := l.pos
	ch := l.current()

	if l.isDigit(ch) || (ch == charPeriod && l.isDigit(l.peek(1))) {
		return l.scanNumber()
	}

	switch ch {
	case charLParen:
		l.pos++
		l.parenDepth++
		return Token{Type: TokenLeftParen, Value: "(", Pos: startPos}
	case charRParen:
		l.pos++
		l.parenDepth--
		if l.parenDepth < 0 {
			return Token{Type: TokenError, Value: "unexpected closing parenthesis", Pos: startPos}
		}
		return Token{Type: TokenRightParen, Value: ")", Pos: startPos}
	case charComma:
		l.pos++
		return Token{Type: TokenComma, Value: ",", Pos: startPos}
	case charPlus, charMinus:
		return l.scanUnaryPrefixOrBinaryOp()
	case charAsterisk, charSlash, charCaret:
		l.pos++
		return Token{Type: TokenBinaryOp, Value: string(ch), Pos: startPos}
	case charPercent:
		l.pos++
		return Token{Type: TokenUnaryPostfixOp, Value: "%", Pos: startPos}
	}

	if l.isAlpha(ch) || ch == charUnderscore {
		return l.scanIdentifierOrCell()
	}

	l.pos++
	return Token{Type: TokenError, Value: "unexpected character: " + string(ch), Pos: startPos}
}

// substring returns a substring of the original input based on rune positions
func (l *Lexer) substring(start, end int) string {
	if start < 0 || end > len(l.runes) || start > end {
		return ""
	}
	return string(l.runes[start:end])
}

func (l *Lexer) current() rune {
	if l.pos >= len(l.runes) {
		return charNull
	}
	return l.runes[l.pos]
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos >= len(l.runes) || pos < 0 {
		return charNull
	}
	return l.runes[pos]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == charSpace || ch == charTab || ch == charNewline || ch == charReturn {
			l.pos++
		} else {
			break
		}
	}
}

func (l *Lexer) isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func (l *Lexer) isAlphaNumeric(ch rune) bool {
	return l.isAlpha(ch) || l.isDigit(ch)
}

// scanNumber scans a number token including decimals and scientific notation
func (l *Lexer) scanNumber() Token {
	startPos := l.pos

	for l.pos < len(l.runes) && l.isDigit(l.current()) {
		l.pos++
	}

	if l.current() == charPeriod && l.isDigit(l.peek(1)) {
		l.pos++ // consume '.'
		for l.pos < len(l.runes) && l.isDigit(l.current()) {
			l.pos++
		}
	}

	if l.current() == 'e' || l.current() == 'E' {
		savedPos := l.pos
		l.pos++

		if l.current() == charPlus || l.current() == charMinus {
			l.pos++
		}

		// must have at least one digit after e/E
		if !l.isDigit(l.current()) {
			l.pos = savedPos
		} else {
			for l.pos < len(l.runes) && l.isDigit(l.current()) {
				l.pos++
			}
		}
	}

	return Token{Type: TokenNumber, Value: l.substring(startPos, l.pos), Pos: startPos}
}

// scanIdentifierOrCell scans functions, cells and ranges. Bare names are
// rejected since there are no named ranges or boolean literals.
func (l *Lexer) scanIdentifierOrCell() Token {
	startPos := l.pos

	for l.pos < len(l.runes) && (l.isAlphaNumeric(l.current()) || l.current() == charUnderscore) {
		l.pos++
	}

	value := l.substring(startPos, l.pos)
	upperValue := strings.ToUpper(value)

	// a name directly followed by '(' is always a call, even LOG10(
	if l.current() == charLParen {
		return Token{Type: TokenFunction, Value: upperValue, Pos: startPos}
	}

	if !l.isCell(value) {
		return Token{Type: TokenError, Value: "unknown name: " + value, Pos: startPos}
	}

	// check for range (A1:B2)
	if l.current() == charColon {
		savedPos := l.pos
		l.pos++

		cellStart := l.pos
		for l.pos < len(l.runes) && l.isAlphaNumeric(l.current()) {
			l.pos++
		}

		secondCell := l.substring(cellStart, l.pos)
		if !l.isCell(secondCell) {
			l.pos = savedPos
			return Token{Type: TokenError, Value: "invalid range reference", Pos: startPos}
		}
		return Token{Type: TokenRange, Value: strings.ToUpper(l.substring(startPos, l.pos)), Pos: startPos}
	}

	return Token{Type: TokenCell, Value: upperValue, Pos: startPos}
}

// isCell checks if a string is shaped like a cell reference (e.g., A1, B12).
// Whether it lies inside the grid is decided later.
func (l *Lexer) isCell(s string) bool {
	if len(s) < 2 {
		return false
	}

	letterEnd := 0
	for i, ch := range s {
		if ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' {
			letterEnd = i + 1
		} else {
			break
		}
	}

	if letterEnd == 0 || letterEnd == len(s) {
		return false
	}

	for i := letterEnd; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

// scanUnaryPrefixOrBinaryOp scans + and - which can be either unary
// prefix or binary
func (l *Lexer) scanUnaryPrefixOrBinaryOp() Token {
	startPos := l.pos
	ch := l.current()
	l.pos++

	if l.isUnaryContext() {
		return Token{Type: TokenUnaryPrefixOp, Value: string(ch), Pos: startPos}
	}
	return Token{Type: TokenBinaryOp, Value: string(ch), Pos: startPos}
}

// isUnaryContext checks if the current context allows for unary operators
func (l *Lexer) isUnaryContext() bool {
	switch l.state {
	case StateStart, StateAfterOperator, StateAfterLeftParen, StateAfterComma:
		return true
	default:
		return false
	}
}
