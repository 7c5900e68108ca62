package frame

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
)

// headerName flattens the column levels for flat output.
func (c *Column) headerName() string {
	if c.Symbol == "" {
		return c.Name
	}
	return c.Name + "." + c.Symbol
}

// WriteCSV writes the frame as CSV, dates first, missing cells empty.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(f.Columns)+1)
	header = append(header, f.IndexName)
	for i := range f.Columns {
		header = append(header, f.Columns[i].headerName())
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for ri, t := range f.Index {
		row[0] = t.Format("2006-01-02")
		for ci := range f.Columns {
			row[ci+1] = f.Columns[ci].cellString(ri)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (c *Column) cellString(ri int) string {
	switch c.Kind {
	case Text:
		return c.Texts[ri].ValueOrZero()
	default:
		if !c.Floats[ri].Valid {
			return ""
		}
		return strconv.FormatFloat(c.Floats[ri].ValueOrZero(), 'f', -1, 64)
	}
}

// MarshalJSON renders the frame as an array of row objects. Missing cells
// serialize as null.
func (f *Frame) MarshalJSON() ([]byte, error) {
	rows := make([]map[string]any, len(f.Index))
	for ri, t := range f.Index {
		row := make(map[string]any, len(f.Columns)+1)
		key := f.IndexName
		if key == "" {
			key = "Date"
		}
		row[key] = t.Format("2006-01-02")
		for ci := range f.Columns {
			c := &f.Columns[ci]
			switch c.Kind {
			case Text:
				row[c.headerName()] = c.Texts[ri]
			default:
				row[c.headerName()] = c.Floats[ri]
			}
		}
		rows[ri] = row
	}
	return json.Marshal(rows)
}
