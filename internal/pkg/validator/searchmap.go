package validator

import (
	"fmt"
	"strings"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"
)

// RequiredColumns must be present in the header row of the first sheet.
var RequiredColumns = []string{"Company", "Position", "Source", "Contact", "Status"}

const (
	contactColumn         = "Contact"
	maxEmptyContactsRatio = 0.5
)

// SearchMapInspector reads recruiter search maps stored as xlsx workbooks.
type SearchMapInspector struct{}

func NewSearchMapInspector() *SearchMapInspector {
	return &SearchMapInspector{}
}

// ValidateStructure checks the first sheet for the required columns and the share
// of empty contacts. A workbook that cannot be opened yields ErrInvalidFile.
func (i *SearchMapInspector) ValidateStructure(path string) (*entity.StructureCheck, error) {
	wb, err := openWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return &entity.StructureCheck{Valid: false, Errors: []string{"Workbook has no sheets"}}, nil
	}

	table := readTable(sheets[0])
	check := &entity.StructureCheck{
		Valid:     true,
		TotalRows: len(table.rows),
	}

	var missing []string
	for _, col := range RequiredColumns {
		if table.index(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		check.Valid = false
		check.Errors = append(check.Errors, "Missing columns: "+strings.Join(missing, ", "))
	}

	if idx := table.index(contactColumn); idx >= 0 {
		for _, row := range table.rows {
			if cellAt(row, idx) == "" {
				check.EmptyContacts++
			}
		}
		if float64(check.EmptyContacts) > float64(check.TotalRows)*maxEmptyContactsRatio {
			check.Valid = false
			check.Errors = append(check.Errors, "Too many empty contacts (>50%)")
		}
	}

	return check, nil
}

// ReadSheets dumps the non-empty values of every column of every sheet.
func (i *SearchMapInspector) ReadSheets(path string) (entity.SheetDump, error) {
	wb, err := openWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	var dump entity.SheetDump
	for _, sheet := range wb.Sheets() {
		table := readTable(sheet)
		out := entity.Sheet{Name: sheet.Name()}
		for idx, name := range table.header {
			if name == "" {
				name = fmt.Sprintf("Column %d", idx+1)
			}
			col := entity.SheetColumn{Name: name}
			for _, row := range table.rows {
				if v := cellAt(row, idx); v != "" {
					col.Values = append(col.Values, v)
				}
			}
			if len(col.Values) > 0 {
				out.Columns = append(out.Columns, col)
			}
		}
		dump = append(dump, out)
	}
	return dump, nil
}

func openWorkbook(path string) (*spreadsheet.Workbook, error) {
	wb, err := spreadsheet.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load file: %v", entity.ErrInvalidFile, err)
	}
	return wb, nil
}

type table struct {
	header []string
	rows   [][]string
}

func (t *table) index(column string) int {
	for i, h := range t.header {
		if h == column {
			return i
		}
	}
	return -1
}

// readTable returns the first non-blank row as header and the following non-blank rows.
// Cells are placed by their column letter, so sparse rows keep their alignment.
func readTable(sheet spreadsheet.Sheet) table {
	var t table
	for _, row := range sheet.Rows() {
		values := make(map[int]string)
		width := 0
		for _, cell := range row.Cells() {
			col, err := cell.Column()
			if err != nil {
				continue
			}
			idx := int(reference.ColumnToIndex(col))
			values[idx] = strings.TrimSpace(cell.GetFormattedValue())
			if idx+1 > width {
				width = idx + 1
			}
		}

		dense := make([]string, width)
		blank := true
		for idx, v := range values {
			dense[idx] = v
			if v != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		if t.header == nil {
			t.header = dense
			continue
		}
		t.rows = append(t.rows, dense)
	}
	return t
}

func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
