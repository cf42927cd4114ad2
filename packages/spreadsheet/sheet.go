// Package spreadsheet is an in-memory sheet of cells holding text or
// formulas. It keeps the dependency graph between cells acyclic, rejects
// edits that would introduce a cycle, and caches computed values until
// something upstream changes.
//
// A Sheet is not safe for concurrent use.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/position"
)

var (
	// ErrInvalidPosition means a position lies outside the grid.
	ErrInvalidPosition = position.ErrInvalidPosition
	// ErrCircularDependency means a write would make a cell depend on itself.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrFormulaParse means formula text could not be parsed.
	ErrFormulaParse = formula.ErrParse
)

// AppError represents errors at the application level (not
// formula evaluation errors, which are cell values). Code follows gRPC
// conventions and Kind is one of the sentinel errors above.
type AppError struct {
	Code    codes.Code
	Kind    error
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// GRPCStatus lets status.Code and status.FromError read the code.
func (e *AppError) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Error())
}

// NewApplicationError creates a new application error
func NewApplicationError(code codes.Code, kind error, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

func invalidPositionError(pos position.Position) error {
	return NewApplicationError(codes.InvalidArgument, ErrInvalidPosition,
		fmt.Sprintf("invalid position (%d, %d)", pos.Row, pos.Col), nil)
}

// Sheet owns every cell, keyed by position, and tracks the printable area.
type Sheet struct {
	cells    map[position.Position]*Cell
	formulas *FormulaTable
	size     position.Size
	logger   *log.Logger
}

// Option configures a Sheet.
type Option func(*Sheet)

// WithLogger sets the logger used for debug output. The default discards.
func WithLogger(l *log.Logger) Option {
	return func(s *Sheet) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty sheet.
func New(opts ...Option) *Sheet {
	s := &Sheet{
		cells:    make(map[position.Position]*Cell),
		formulas: NewFormulaTable(),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCell replaces the content at pos with text. Structural problems
// (invalid position, unparsable formula, circular reference) are returned
// as *AppError and leave the sheet untouched.
func (s *Sheet) SetCell(pos position.Position, text string) error {
	if !pos.IsValid() {
		return invalidPositionError(pos)
	}

	cell, exists := s.cells[pos]
	if exists && !cell.placeholder && cell.Text() == text {
		return nil
	}

	content, err := parseContent(text)
	if err != nil {
		s.logger.Debug("rejected formula", "pos", pos, "err", err)
		return NewApplicationError(codes.InvalidArgument, ErrFormulaParse,
			fmt.Sprintf("cannot parse formula in %s", pos), err)
	}

	refs := content.references()
	if s.checkCycle(pos, refs) {
		s.logger.Debug("rejected circular reference", "pos", pos, "text", text)
		return NewApplicationError(codes.FailedPrecondition, ErrCircularDependency,
			fmt.Sprintf("circular dependency in %s", pos), nil)
	}

	if !exists {
		cell = newCell(s, pos)
		s.cells[pos] = cell
	}
	s.clearDependencies(pos)
	if content.Kind == ContentFormula {
		content.Formula = s.formulas.Intern(content.Formula, pos)
	} else {
		s.formulas.Release(pos)
	}
	cell.content = content
	cell.placeholder = false
	for _, ref := range refs {
		s.addCellDependency(pos, ref)
	}

	invalidated := s.invalidate(pos)
	s.grow(pos)
	s.logger.Debug("set cell", "pos", pos, "refs", len(refs), "invalidated", invalidated)
	return nil
}

// GetCell returns the cell at pos, or nil when nothing is stored there.
func (s *Sheet) GetCell(pos position.Position) (*Cell, error) {
	if !pos.IsValid() {
		return nil, invalidPositionError(pos)
	}
	return s.cells[pos], nil
}

// ClearCell removes the content at pos. If other cells still reference pos,
// an empty placeholder stays behind to carry their edges.
func (s *Sheet) ClearCell(pos position.Position) error {
	if !pos.IsValid() {
		return invalidPositionError(pos)
	}

	cell, exists := s.cells[pos]
	if !exists {
		return nil
	}

	s.clearDependencies(pos)
	s.formulas.Release(pos)
	invalidated := s.invalidate(pos)

	written := !cell.placeholder
	cell.content = Content{}
	cell.placeholder = true
	if len(cell.dependents) == 0 {
		delete(s.cells, pos)
	}

	if written && (pos.Row == s.size.Rows-1 || pos.Col == s.size.Cols-1) {
		s.recomputeSize()
	}
	s.logger.Debug("cleared cell", "pos", pos, "invalidated", invalidated)
	return nil
}

// GetValue returns the value at pos. Unset positions read as empty text.
func (s *Sheet) GetValue(pos position.Position) (Value, error) {
	cell, err := s.GetCell(pos)
	if err != nil {
		return Value{}, err
	}
	if cell == nil {
		return TextValue(""), nil
	}
	return cell.Value(), nil
}

// GetText returns the raw text at pos. Unset positions read as "".
func (s *Sheet) GetText(pos position.Position) (string, error) {
	cell, err := s.GetCell(pos)
	if err != nil {
		return "", err
	}
	if cell == nil {
		return "", nil
	}
	return cell.Text(), nil
}

// GetPrintableSize returns one past the largest written row and column, or
// {0, 0} for an empty sheet. Placeholders do not count.
func (s *Sheet) GetPrintableSize() position.Size {
	return s.size
}

// Formulas returns the table of distinct formulas held by the sheet.
func (s *Sheet) Formulas() *FormulaTable {
	return s.formulas
}

// Len returns the number of materialized cells, placeholders included.
func (s *Sheet) Len() int {
	return len(s.cells)
}

// Cells iterates over every materialized cell in row-major order.
func (s *Sheet) Cells() iter.Seq2[position.Position, *Cell] {
	return func(yield func(position.Position, *Cell) bool) {
		for _, pos := range slices.SortedFunc(maps.Keys(s.cells), position.Compare) {
			if !yield(pos, s.cells[pos]) {
				return
			}
		}
	}
}

// Recalculate drops every cached value and evaluates all cells again.
func (s *Sheet) Recalculate() {
	for _, cell := range s.cells {
		cell.cache = nil
	}
	for _, cell := range s.cells {
		cell.Value()
	}
	s.logger.Debug("recalculated", "cells", len(s.cells))
}

// operandAt resolves a reference made by a formula.
func (s *Sheet) operandAt(pos position.Position) formula.Operand {
	cell, exists := s.cells[pos]
	if !exists {
		return formula.BlankOperand()
	}
	return cell.Value().operand()
}

func (s *Sheet) grow(pos position.Position) {
	if pos.Row >= s.size.Rows {
		s.size.Rows = pos.Row + 1
	}
	if pos.Col >= s.size.Cols {
		s.size.Cols = pos.Col + 1
	}
}

// recomputeSize rescans written cells for the new bounding box.
func (s *Sheet) recomputeSize() {
	var size position.Size
	for pos, cell := range s.cells {
		if cell.placeholder {
			continue
		}
		size.Rows = max(size.Rows, pos.Row+1)
		size.Cols = max(size.Cols, pos.Col+1)
	}
	s.size = size
}
