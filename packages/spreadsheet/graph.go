package spreadsheet

import (
	"github.com/vogtb/go-spreadsheet/packages/position"
)

// getOrCreatePlaceholder returns the cell at pos, materializing an empty
// placeholder if nothing is stored there yet.
func (s *Sheet) getOrCreatePlaceholder(pos position.Position) *Cell {
	if cell, exists := s.cells[pos]; exists {
		return cell
	}
	cell := newCell(s, pos)
	cell.placeholder = true
	s.cells[pos] = cell
	return cell
}

// addCellDependency records that from reads to, on both ends.
func (s *Sheet) addCellDependency(from, to position.Position) {
	fromCell := s.cells[from]
	toCell := s.getOrCreatePlaceholder(to)

	fromCell.precedents[to] = struct{}{}
	toCell.dependents[from] = struct{}{}
}

// clearDependencies drops every outgoing edge of the cell at pos and the
// matching incoming edges on the far side.
func (s *Sheet) clearDependencies(pos position.Position) {
	cell, exists := s.cells[pos]
	if !exists {
		return
	}

	for precedentPos := range cell.precedents {
		if precedent, ok := s.cells[precedentPos]; ok {
			delete(precedent.dependents, pos)
		}
	}
	clear(cell.precedents)
}

// checkCycle reports whether making target read refs would let target reach
// itself through precedent edges. Missing cells have no edges.
func (s *Sheet) checkCycle(target position.Position, refs []position.Position) bool {
	visited := make(map[position.Position]struct{})
	stack := append([]position.Position(nil), refs...)

	for len(stack) > 0 {
		pos := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if pos == target {
			return true
		}
		if _, seen := visited[pos]; seen {
			continue
		}
		visited[pos] = struct{}{}

		cell, exists := s.cells[pos]
		if !exists {
			continue
		}
		for precedentPos := range cell.precedents {
			if _, seen := visited[precedentPos]; !seen {
				stack = append(stack, precedentPos)
			}
		}
	}
	return false
}

// invalidate drops the cached value of pos and of every cell that
// transitively depends on it. It returns how many cells were visited.
func (s *Sheet) invalidate(pos position.Position) int {
	visited := make(map[position.Position]struct{})
	s.collectDependents(pos, visited, func(cell *Cell) {
		cell.cache = nil
	})
	return len(visited)
}

// collectDependents walks dependents edges from pos, visiting each cell once
func (s *Sheet) collectDependents(pos position.Position, visited map[position.Position]struct{}, visit func(*Cell)) {
	if _, alreadyVisited := visited[pos]; alreadyVisited {
		return
	}
	visited[pos] = struct{}{}

	cell, exists := s.cells[pos]
	if !exists {
		return
	}
	visit(cell)

	for dependentPos := range cell.dependents {
		s.collectDependents(dependentPos, visited, visit)
	}
}

// GetAllDependents returns every position affected by a change at pos
// (transitive closure), row-major. pos itself is not included.
func (s *Sheet) GetAllDependents(pos position.Position) []position.Position {
	visited := make(map[position.Position]struct{})
	s.collectDependents(pos, visited, func(*Cell) {})
	delete(visited, pos)
	return sortedKeys(visited)
}

// HasCycle checks the whole sheet for circular dependencies. Writes never
// commit a cycle, so this only fails if the graph is corrupted.
func (s *Sheet) HasCycle() bool {
	// three states: unvisited (not in map), visiting (false), visited (true)
	state := make(map[position.Position]bool)

	var visit func(pos position.Position) bool
	visit = func(pos position.Position) bool {
		if completed, exists := state[pos]; exists {
			// currently visiting means we came back around
			return !completed
		}
		state[pos] = false

		if cell, exists := s.cells[pos]; exists {
			for precedentPos := range cell.precedents {
				if visit(precedentPos) {
					return true
				}
			}
		}

		state[pos] = true
		return false
	}

	for pos := range s.cells {
		if _, visited := state[pos]; !visited && visit(pos) {
			return true
		}
	}
	return false
}
