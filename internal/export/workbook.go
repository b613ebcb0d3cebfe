// Package export renders attendance sheets as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/xuri/excelize/v2"

	"schoolattend/internal/report"
)

const (
	// SheetName is the worksheet holding the table.
	SheetName = "Attendance"
	// DefaultTitle prefixes the sheet title row.
	DefaultTitle = "Staff Attendance Record"

	headerRow = 3
)

var (
	headers = []string{"No.", "Name", "Time In", "Time Out", "Note"}
	widths  = []float64{5, 40, 15, 15, 20}
)

// Title returns the heading written above the table.
func Title(prefix, date, group string) string {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultTitle
	}
	return fmt.Sprintf("%s %s - %s", prefix, date, group)
}

// Filename is the suggested download name for a sheet.
func Filename(date, group string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '"', ':':
			return '_'
		}
		return r
	}, group)
	return fmt.Sprintf("attendance_%s_%s.xlsx", date, clean)
}

// Workbook writes the sheet to an in-memory xlsx document: a merged title row,
// a styled header on row 3 frozen in place, then one row per export row.
func Workbook(title string, sheet report.Sheet) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, errors.Trace(err)
	}
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Calibri", Size: 14, Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Calibri", Size: 11, Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	centerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Calibri", Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	leftStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Calibri", Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	if err := f.SetCellValue(SheetName, "A1", title); err != nil {
		return nil, errors.Trace(err)
	}
	if err := f.MergeCell(SheetName, "A1", "E1"); err != nil {
		return nil, errors.Trace(err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "E1", titleStyle); err != nil {
		return nil, errors.Trace(err)
	}

	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, widths[i]); err != nil {
			return nil, errors.Trace(err)
		}
		if err := f.SetCellValue(SheetName, fmt.Sprintf("%s%d", col, headerRow), h); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A3", "E3", headerStyle); err != nil {
		return nil, errors.Trace(err)
	}

	for i, r := range sheet.Rows {
		n := headerRow + 1 + i
		values := []interface{}{r.Seq, r.Name, r.TimeIn, r.TimeOut, r.Note}
		cell, _ := excelize.CoordinatesToCellName(1, n)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, errors.Trace(err)
		}
		if err := f.SetCellStyle(SheetName, fmt.Sprintf("A%d", n), fmt.Sprintf("E%d", n), centerStyle); err != nil {
			return nil, errors.Trace(err)
		}
		if err := f.SetCellStyle(SheetName, fmt.Sprintf("B%d", n), fmt.Sprintf("B%d", n), leftStyle); err != nil {
			return nil, errors.Trace(err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: "A4",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, errors.Trace(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Annotate(err, "write workbook")
	}
	return buf, nil
}
