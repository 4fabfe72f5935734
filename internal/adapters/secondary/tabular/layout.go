// Package tabular maps rows of a materialization table onto entities.
//
// A table needs an id column (id, segment_id or mito_id), a parent group
// column (parent_group_id or neuron_id) and a position, given either as
// x, y, z or as the bounds min_x..max_z, whose centre is used.
package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"mito-gallery-service/internal/core/domain"
)

var (
	idAliases    = []string{"id", "segment_id", "mito_id"}
	groupAliases = []string{"parent_group_id", "neuron_id"}
	posColumns   = [3]string{"x", "y", "z"}
	boundColumns = [6]string{"min_x", "min_y", "min_z", "max_x", "max_y", "max_z"}
)

// Layout is the resolved column positions of one table.
type Layout struct {
	source    string
	header    []string // lowercased, for matching and errors
	names     []string // as given, minus padding and BOM
	id        int
	group     int
	pos       [3]int
	bounds    [6]int
	hasPos    bool
	hasBounds bool
}

// Resolve locates the required columns in header. Matching is
// case-insensitive.
func Resolve(source string, header []string) (*Layout, error) {
	index := make(map[string]int, len(header))
	names := make([]string, len(header))
	clean := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		name := strings.ToLower(names[i])
		clean[i] = name
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	l := &Layout{source: source, header: clean, names: names}

	var ok bool
	if l.id, ok = first(index, idAliases); !ok {
		return nil, missingColumn(source, idAliases[0])
	}
	if l.group, ok = first(index, groupAliases); !ok {
		return nil, missingColumn(source, groupAliases[0])
	}

	l.hasPos = true
	for i, c := range posColumns {
		if l.pos[i], ok = index[c]; !ok {
			l.hasPos = false
			break
		}
	}
	l.hasBounds = true
	for i, c := range boundColumns {
		if l.bounds[i], ok = index[c]; !ok {
			l.hasBounds = false
			break
		}
	}
	if !l.hasPos && !l.hasBounds {
		return nil, missingColumn(source, "x")
	}
	return l, nil
}

func first(index map[string]int, aliases []string) (int, bool) {
	for _, a := range aliases {
		if i, ok := index[a]; ok {
			return i, true
		}
	}
	return 0, false
}

func missingColumn(source, column string) error {
	return &domain.DataLoadError{
		Source: source,
		Column: column,
		Err:    fmt.Errorf("required column missing"),
	}
}

// Columns returns the names of the columns the layout reads, in header order
// and with their original case, so they can be quoted back into SQL.
func (l *Layout) Columns() []string {
	used := map[int]bool{l.id: true, l.group: true}
	if l.hasPos {
		for _, i := range l.pos {
			used[i] = true
		}
	}
	if l.hasBounds {
		for _, i := range l.bounds {
			used[i] = true
		}
	}
	var out []string
	for i, name := range l.names {
		if used[i] {
			out = append(out, name)
		}
	}
	return out
}

// Parse converts one row. rowNum is 1-based and only used in errors.
func (l *Layout) Parse(row []string, rowNum int) (domain.Entity, error) {
	var e domain.Entity
	var err error

	if e.ID, err = l.parseInt(row, l.id, rowNum); err != nil {
		return e, err
	}
	if e.ParentGroupID, err = l.parseInt(row, l.group, rowNum); err != nil {
		return e, err
	}

	if l.hasBounds {
		var v [6]float64
		for i, col := range l.bounds {
			if v[i], err = l.parseFloat(row, col, rowNum); err != nil {
				return e, err
			}
		}
		e.Bounds = &domain.Bounds{MinX: v[0], MinY: v[1], MinZ: v[2], MaxX: v[3], MaxY: v[4], MaxZ: v[5]}
	}

	if l.hasPos {
		var p [3]float64
		for i, col := range l.pos {
			if p[i], err = l.parseFloat(row, col, rowNum); err != nil {
				return e, err
			}
		}
		e.Position = domain.Position{X: p[0], Y: p[1], Z: p[2]}
	} else {
		e.Position = e.Bounds.Center()
	}
	return e, nil
}

func (l *Layout) cell(row []string, col, rowNum int) (string, error) {
	if col >= len(row) {
		return "", l.rowError(rowNum, col, fmt.Errorf("row has %d fields", len(row)))
	}
	return strings.TrimSpace(row[col]), nil
}

func (l *Layout) parseInt(row []string, col, rowNum int) (int64, error) {
	s, err := l.cell(row, col, rowNum)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	// Exports sometimes write integer ids as floats ("115.0").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, l.rowError(rowNum, col, fmt.Errorf("invalid integer %q", s))
	}
	return int64(f), nil
}

func (l *Layout) parseFloat(row []string, col, rowNum int) (float64, error) {
	s, err := l.cell(row, col, rowNum)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, l.rowError(rowNum, col, fmt.Errorf("invalid number %q", s))
	}
	return f, nil
}

func (l *Layout) rowError(rowNum, col int, err error) error {
	name := ""
	if col < len(l.header) {
		name = l.header[col]
	}
	return &domain.DataLoadError{Source: l.source, Row: rowNum, Column: name, Err: err}
}
