package frame

import (
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// Level names on combined wide frames.
const (
	LevelAttributes = "Attributes"
	LevelSymbols    = "Symbols"
)

// Combine merges per-symbol frames into a single wide frame. The row index
// is the union of all dates, ascending; columns carry two levels, the
// attribute name (outer) and the symbol (inner), both ordered
// lexicographically. Cells absent from a symbol's frame are missing.
func Combine(stocks map[string]*Frame) (*Frame, error) {
	if len(stocks) == 0 {
		return nil, fmt.Errorf("combine: no frames to combine")
	}

	symbols := make([]string, 0, len(stocks))
	for sym := range stocks {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	// Union of attributes across all frames, and of dates.
	attrSet := map[string]Kind{}
	var attrs []string
	dateSet := map[int64]time.Time{}
	for _, sym := range symbols {
		f := stocks[sym]
		for _, c := range f.Columns {
			if _, ok := attrSet[c.Name]; !ok {
				attrSet[c.Name] = c.Kind
				attrs = append(attrs, c.Name)
			}
		}
		for _, t := range f.Index {
			dateSet[t.Unix()] = t
		}
	}
	sort.Strings(attrs)
	if len(attrs) == 0 {
		return nil, fmt.Errorf("combine: frames have no columns")
	}

	index := make([]time.Time, 0, len(dateSet))
	for _, t := range dateSet {
		index = append(index, t)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	out := &Frame{
		IndexName:  stocks[symbols[0]].IndexName,
		Index:      index,
		LevelNames: []string{LevelAttributes, LevelSymbols},
	}
	for _, attr := range attrs {
		for _, sym := range symbols {
			out.Columns = append(out.Columns, alignColumn(attr, attrSet[attr], sym, stocks[sym], index))
		}
	}
	return out, nil
}

// alignColumn projects one symbol's attribute onto the combined index.
func alignColumn(attr string, kind Kind, sym string, f *Frame, index []time.Time) Column {
	rowAt := make(map[int64]int, len(f.Index))
	for i, t := range f.Index {
		rowAt[t.Unix()] = i
	}
	src, found := f.Col(attr)

	col := Column{Name: attr, Symbol: sym, Kind: kind}
	switch kind {
	case Text:
		col.Texts = make([]null.String, len(index))
		if !found || src.Kind != Text {
			return col
		}
		for i, t := range index {
			if ri, ok := rowAt[t.Unix()]; ok {
				col.Texts[i] = src.Texts[ri]
			}
		}
	default:
		col.Floats = make([]null.Float, len(index))
		if !found || src.Kind != Float {
			return col
		}
		for i, t := range index {
			if ri, ok := rowAt[t.Unix()]; ok {
				col.Floats[i] = src.Floats[ri]
			}
		}
	}
	return col
}
