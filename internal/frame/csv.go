package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"datareader/internal/datautil"
)

// naMarkers are cell values that map to missing.
var naMarkers = map[string]bool{
	"":     true,
	"-":    true,
	"null": true,
}

// ParseCSV parses delimited tabular data into a Frame. The first column
// becomes the date index. The source delivers rows newest-first, so row
// order is reversed to chronological. Column names are trimmed, the index
// name is reduced to ASCII, and a trailing duplicate-date row (a known
// provider glitch where the most recent day appears twice) is dropped.
func ParseCSV(r io.Reader) (*Frame, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("parse csv: missing header row")
	}

	header := records[0]
	names := make([]string, len(header)-1)
	for i, h := range header[1:] {
		names[i] = strings.TrimSpace(h)
	}

	rows := records[1:]
	index := make([]time.Time, 0, len(rows))
	cells := make([][]string, 0, len(rows))

	// Source order is newest-first; walk backwards for ascending dates.
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		t, err := datautil.ParseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("parse csv: row %d: %w", i+1, err)
		}
		index = append(index, t)
		cells = append(cells, row[1:])
	}

	// Duplicate-day glitch: the two most recent rows can share a date.
	if n := len(index); n > 2 && index[n-1].Equal(index[n-2]) {
		index = index[:n-1]
		cells = cells[:n-1]
	}

	f := &Frame{
		IndexName: asciiOnly(strings.TrimSpace(header[0])),
		Index:     index,
		Columns:   make([]Column, len(names)),
	}
	for ci, name := range names {
		f.Columns[ci] = buildColumn(name, ci, cells)
	}
	return f, nil
}

// buildColumn types a column as Float when every non-missing cell parses as
// a number; otherwise it stays Text.
func buildColumn(name string, ci int, cells [][]string) Column {
	numeric := true
	for _, row := range cells {
		v := strings.TrimSpace(row[ci])
		if naMarkers[v] {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			numeric = false
			break
		}
	}

	col := Column{Name: name}
	if numeric {
		col.Kind = Float
		col.Floats = make([]null.Float, len(cells))
		for ri, row := range cells {
			v := strings.TrimSpace(row[ci])
			if naMarkers[v] {
				continue
			}
			n, _ := strconv.ParseFloat(v, 64)
			col.Floats[ri] = null.FloatFrom(n)
		}
		return col
	}

	col.Kind = Text
	col.Texts = make([]null.String, len(cells))
	for ri, row := range cells {
		v := strings.TrimSpace(row[ci])
		if naMarkers[v] {
			continue
		}
		col.Texts[ri] = null.StringFrom(v)
	}
	return col
}
