package frame

import (
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// Kind describes the parsed type of a column.
type Kind int

const (
	// Float columns hold numeric cells.
	Float Kind = iota
	// Text columns hold string cells.
	Text
)

// Column is one named field of a Frame. Floats is populated for Float
// columns and Texts for Text columns; missing cells are invalid nulls.
// Symbol carries the inner column level on wide frames and is empty
// otherwise.
type Column struct {
	Name   string
	Symbol string
	Kind   Kind
	Floats []null.Float
	Texts  []null.String
}

// Frame is a date-indexed table with named columns. Rows are ordered
// ascending by date after normalization. Wide frames produced by combining
// per-symbol results carry two column levels, named in LevelNames.
type Frame struct {
	IndexName  string
	Index      []time.Time
	Columns    []Column
	LevelNames []string
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return len(f.Index) }

// Col returns the column with the given name and no symbol level.
func (f *Frame) Col(name string) (*Column, bool) {
	return f.ColFor(name, "")
}

// ColFor returns the column for an (attribute, symbol) pair.
func (f *Frame) ColFor(name, symbol string) (*Column, bool) {
	for i := range f.Columns {
		if f.Columns[i].Name == name && f.Columns[i].Symbol == symbol {
			return &f.Columns[i], true
		}
	}
	return nil, false
}

// IndexStrings formats the row index as strings, so an existing frame's
// index can seed another read.
func (f *Frame) IndexStrings() []string {
	out := make([]string, len(f.Index))
	for i, t := range f.Index {
		out[i] = t.Format("2006-01-02")
	}
	return out
}

// AllMissing returns a copy of the frame with every cell set to missing.
// Shape, column names and kinds are preserved.
func (f *Frame) AllMissing() *Frame {
	out := &Frame{
		IndexName:  f.IndexName,
		Index:      append([]time.Time(nil), f.Index...),
		Columns:    make([]Column, len(f.Columns)),
		LevelNames: append([]string(nil), f.LevelNames...),
	}
	for i, c := range f.Columns {
		nc := Column{Name: c.Name, Symbol: c.Symbol, Kind: c.Kind}
		switch c.Kind {
		case Text:
			nc.Texts = make([]null.String, len(c.Texts))
		default:
			nc.Floats = make([]null.Float, len(c.Floats))
		}
		out.Columns[i] = nc
	}
	return out
}

// asciiOnly drops every non-ASCII rune from s.
func asciiOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
