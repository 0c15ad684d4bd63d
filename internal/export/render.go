package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/mealbook/internal/sheet"
)

const (
	headerFill = "4472C4"
	totalFill  = "E7E6E6"
	creator    = "mealbook"
)

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// styles holds the style ids of each row kind, with and without borders.
type styles struct {
	plain    map[sheet.RowKind]int
	bordered map[sheet.RowKind]int
}

func rowStyle(kind sheet.RowKind, border bool) *excelize.Style {
	s := &excelize.Style{}
	switch kind {
	case sheet.RowHeader:
		s.Font = &excelize.Font{Bold: true, Color: "FFFFFF"}
		s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}}
		s.Alignment = &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	case sheet.RowMeal:
		s.Alignment = &excelize.Alignment{Vertical: "top", WrapText: true}
	case sheet.RowTotal:
		s.Font = &excelize.Font{Bold: true}
		s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{totalFill}}
	}
	if border {
		s.Border = thinBorder
	}
	return s
}

func newStyles(f *excelize.File) (styles, error) {
	st := styles{plain: map[sheet.RowKind]int{}, bordered: map[sheet.RowKind]int{}}
	for _, kind := range []sheet.RowKind{sheet.RowHeader, sheet.RowMeal, sheet.RowTotal} {
		id, err := f.NewStyle(rowStyle(kind, false))
		if err != nil {
			return st, fmt.Errorf("creating style: %w", err)
		}
		st.plain[kind] = id
		if id, err = f.NewStyle(rowStyle(kind, true)); err != nil {
			return st, fmt.Errorf("creating style: %w", err)
		}
		st.bordered[kind] = id
	}
	return st, nil
}

// render adds one worksheet per day to f. A fresh workbook loses its
// default sheet and gets document properties.
func render(f *excelize.File, days []sheet.Day, fresh bool, now time.Time) error {
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	defaultSheet := f.GetSheetName(0)

	for _, day := range days {
		if _, err := f.NewSheet(day.Name); err != nil {
			return fmt.Errorf("adding sheet %s: %w", day.Name, err)
		}
		if err := writeDay(f, day, st); err != nil {
			return fmt.Errorf("sheet %s: %w", day.Name, err)
		}
		if err := finish(f, day, st); err != nil {
			return fmt.Errorf("sheet %s: %w", day.Name, err)
		}
	}

	if !fresh {
		return nil
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}
	f.SetActiveSheet(0)
	stamp := now.UTC().Format(time.RFC3339)
	return f.SetDocProps(&excelize.DocProperties{
		Creator:        creator,
		LastModifiedBy: creator,
		Created:        stamp,
		Modified:       stamp,
		Title:          "Food diary",
	})
}

// writeDay writes cell values, row styles, heights, widths and the frozen
// header of one sheet.
func writeDay(f *excelize.File, day sheet.Day, st styles) error {
	name := day.Name
	for i, col := range sheet.Columns {
		letter, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, letter, letter, col.Width); err != nil {
			return err
		}
	}

	for r, row := range day.Rows {
		rowNum := r + 1
		for c, v := range row.Cells {
			cell, err := excelize.CoordinatesToCellName(c+1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
		if row.Kind != sheet.RowSpacer {
			if err := styleRow(f, name, rowNum, len(row.Cells), st.plain[row.Kind]); err != nil {
				return err
			}
		}
		if row.Height > 0 {
			if err := f.SetRowHeight(name, rowNum, row.Height); err != nil {
				return err
			}
		}
	}

	return f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// finish puts a thin border on every written cell once the whole sheet has
// content. Spacer rows stay bare.
func finish(f *excelize.File, day sheet.Day, st styles) error {
	for r, row := range day.Rows {
		if row.Kind == sheet.RowSpacer || len(row.Cells) == 0 {
			continue
		}
		if err := styleRow(f, day.Name, r+1, len(row.Cells), st.bordered[row.Kind]); err != nil {
			return err
		}
	}
	return nil
}

func styleRow(f *excelize.File, name string, rowNum, cells, style int) error {
	first, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cells, rowNum)
	if err != nil {
		return err
	}
	return f.SetCellStyle(name, first, last, style)
}
