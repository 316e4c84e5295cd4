package forms

import (
	"fmt"
	"strconv"

	"afh-workers/internal/common/metrics"
	"afh-workers/internal/common/placeholder"
	"afh-workers/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	marSheet     = "MAR"
	marHeaderRow = 6
)

var marFixedColumns = []struct {
	title string
	key   string
	width float64
}{
	{"Medication", "name", 28},
	{"Dose", "dose", 12},
	{"Route", "route", 10},
	{"Frequency", "frequency", 14},
	{"Times", "times", 12},
}

// ExportMARWorkbook writes the medication administration record as an
// .xlsx workbook with one row per medication and one column per day.
func ExportMARWorkbook(data map[string]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(marSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDE4EE"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "bottom", Color: "7F7F7F", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	dayStyle, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Horizontal: "center"}})
	if err != nil {
		return nil, err
	}

	str := func(path string) string {
		v, _ := placeholder.Lookup(data, path)
		return FormatValue(v)
	}
	header := [][2]string{
		{"Medication Administration Record", ""},
		{"Resident", str("resident.name")},
		{"Facility", str("facility.name")},
		{"Month", str("month")},
	}
	for i, h := range header {
		row := i + 1
		if err := f.SetCellValue(marSheet, cell(1, row), h[0]); err != nil {
			return nil, err
		}
		if h[1] != "" {
			if err := f.SetCellValue(marSheet, cell(2, row), h[1]); err != nil {
				return nil, err
			}
		}
	}
	if err := f.SetCellStyle(marSheet, "A1", "A1", titleStyle); err != nil {
		return nil, err
	}

	lastCol := len(marFixedColumns) + MARDays
	for i, c := range marFixedColumns {
		if err := f.SetCellValue(marSheet, cell(i+1, marHeaderRow), c.title); err != nil {
			return nil, err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(marSheet, name, name, c.width); err != nil {
			return nil, err
		}
	}
	for day := 1; day <= MARDays; day++ {
		if err := f.SetCellValue(marSheet, cell(len(marFixedColumns)+day, marHeaderRow), day); err != nil {
			return nil, err
		}
	}
	firstDay, _ := excelize.ColumnNumberToName(len(marFixedColumns) + 1)
	lastDay, _ := excelize.ColumnNumberToName(lastCol)
	if err := f.SetColWidth(marSheet, firstDay, lastDay, 4.5); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(marSheet, cell(1, marHeaderRow), cell(lastCol, marHeaderRow), headerStyle); err != nil {
		return nil, err
	}

	rows := gridRows(data, "medications")
	for i, med := range rows {
		row := marHeaderRow + 1 + i
		for j, c := range marFixedColumns {
			if err := f.SetCellValue(marSheet, cell(j+1, row), FormatValue(med[c.key])); err != nil {
				return nil, err
			}
		}
		days, _ := med["administrations"].(map[string]interface{})
		for day := 1; day <= MARDays; day++ {
			initials := FormatValue(days[strconv.Itoa(day)])
			if initials == "" {
				continue
			}
			if err := f.SetCellValue(marSheet, cell(len(marFixedColumns)+day, row), initials); err != nil {
				return nil, err
			}
		}
	}
	if len(rows) > 0 {
		last := marHeaderRow + len(rows)
		if err := f.SetCellStyle(marSheet, cell(len(marFixedColumns)+1, marHeaderRow+1), cell(lastCol, last), dayStyle); err != nil {
			return nil, err
		}
	}

	if err := f.SetPanes(marSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      marHeaderRow,
		TopLeftCell: cell(1, marHeaderRow+1),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	metrics.FormsRendered.WithLabelValues(string(models.FormTypeMAR), "xlsx").Inc()
	return buf.Bytes(), nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
