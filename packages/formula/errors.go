package formula

import (
	"errors"
	"fmt"
)

// ErrorCode represents standard spreadsheet error codes following
// Excel conventions
type ErrorCode uint8

const (
	ErrorCodeNull     ErrorCode = 1  // #NULL! - no cells in common between ranges
	ErrorCodeDiv0     ErrorCode = 2  // #DIV/0! - division by zero or a non-finite result
	ErrorCodeValue    ErrorCode = 3  // #VALUE! - wrong type of argument or operand
	ErrorCodeRef      ErrorCode = 4  // #REF! - reference outside the grid
	ErrorCodeName     ErrorCode = 5  // #NAME? - unrecognized function name
	ErrorCodeNum      ErrorCode = 6  // #NUM! - argument outside a function's domain
	ErrorCodeNA       ErrorCode = 7  // #N/A - wrong number of arguments
	ErrorCodeOther    ErrorCode = 8  // #ERROR! - all other errors
	ErrorCodeCircular ErrorCode = 9  // #CYCLE! - reference cycle
	ErrorCodeParse    ErrorCode = 10 // #PARSE! - unparsable expression
)

// ErrorMapper maps error code numbers to their string representations
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeNull:     "#NULL!",
	ErrorCodeDiv0:     "#DIV/0!",
	ErrorCodeValue:    "#VALUE!",
	ErrorCodeRef:      "#REF!",
	ErrorCodeName:     "#NAME?",
	ErrorCodeNum:      "#NUM!",
	ErrorCodeNA:       "#N/A",
	ErrorCodeOther:    "#ERROR!",
	ErrorCodeCircular: "#CYCLE!",
	ErrorCodeParse:    "#PARSE!",
}

func (c ErrorCode) String() string {
	if s, ok := ErrorMapper[c]; ok {
		return s
	}
	return ErrorMapper[ErrorCodeOther]
}

// Error is an evaluation failure. It is data, shown in the cell, not a
// reason to abort anything.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

// NewError creates an evaluation error, defaulting the message to the code's label.
func NewError(code ErrorCode, message string) *Error {
	if message == "" {
		message = code.String()
	}
	return &Error{
		Code:    code,
		Message: message,
	}
}

// ErrParse matches every *ParseError via errors.Is.
var ErrParse = errors.New("formula parse error")

// ParseError reports a malformed expression. Pos is a rune offset into the
// expression text.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Pos, e.Message)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
