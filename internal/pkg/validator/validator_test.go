package validator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unidoc/unioffice/spreadsheet"
)

// writeWorkbook saves sheets of rows to a temporary xlsx file. A nil cell is left empty.
func writeWorkbook(t *testing.T, sheets map[string][][]*string, order ...string) string {
	t.Helper()

	wb := spreadsheet.New()
	defer wb.Close()

	for _, name := range order {
		sheet := wb.AddSheet()
		sheet.SetName(name)
		for _, values := range sheets[name] {
			row := sheet.AddRow()
			for _, v := range values {
				cell := row.AddCell()
				if v != nil {
					cell.SetString(*v)
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), "map.xlsx")
	require.NoError(t, wb.SaveToFile(path))
	return path
}

func s(v string) *string { return &v }

func header(cols ...string) []*string {
	out := make([]*string, len(cols))
	for i, c := range cols {
		out[i] = s(c)
	}
	return out
}

func TestValidateStructureMissingColumn(t *testing.T) {
	path := writeWorkbook(t, map[string][][]*string{
		"Карта": {
			header("Company", "Position", "Source", "Status"),
			header("Acme", "Recruiter", "hh.ru", "new"),
		},
	}, "Карта")

	check, err := NewSearchMapInspector().ValidateStructure(path)
	require.NoError(t, err)
	assert.False(t, check.Valid)
	require.NotEmpty(t, check.Errors)
	assert.Contains(t, check.Errors[0], "Contact")
}

func TestValidateStructureEmptyContacts(t *testing.T) {
	cols := header("Company", "Position", "Source", "Contact", "Status")
	path := writeWorkbook(t, map[string][][]*string{
		"Карта": {
			cols,
			{s("A"), s("HR"), s("hh"), s("+7 900"), s("new")},
			{s("B"), s("HR"), s("hh"), nil, s("new")},
			{s("C"), s("HR"), s("hh"), nil, s("new")},
		},
	}, "Карта")

	check, err := NewSearchMapInspector().ValidateStructure(path)
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Equal(t, 3, check.TotalRows)
	assert.Equal(t, 2, check.EmptyContacts)
	assert.Contains(t, check.Errors, "Too many empty contacts (>50%)")
}

func TestValidateStructureValid(t *testing.T) {
	cols := header("Company", "Position", "Source", "Contact", "Status")
	path := writeWorkbook(t, map[string][][]*string{
		"Карта": {
			cols,
			{s("A"), s("HR"), s("hh"), s("+7 900"), s("new")},
			{s("B"), s("HR"), s("hh"), nil, s("new")},
		},
	}, "Карта")

	check, err := NewSearchMapInspector().ValidateStructure(path)
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Empty(t, check.Errors)
}

func TestValidateStructureUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))

	_, err := NewSearchMapInspector().ValidateStructure(path)
	assert.True(t, errors.Is(err, entity.ErrInvalidFile))
}

func TestReadSheets(t *testing.T) {
	path := writeWorkbook(t, map[string][][]*string{
		"Оценочный лист": {
			header("Требование", "Индикатор"),
			header("Коммуникабельность", "Задаёт уточняющие вопросы"),
			{s("Стрессоустойчивость"), nil},
		},
		"Контакты": {
			header("Company", "Contact"),
		},
	}, "Оценочный лист", "Контакты")

	dump, err := NewSearchMapInspector().ReadSheets(path)
	require.NoError(t, err)
	require.Len(t, dump, 2)

	assert.Equal(t, "Оценочный лист", dump[0].Name)
	require.Len(t, dump[0].Columns, 2)
	assert.Equal(t, []string{"Коммуникабельность", "Стрессоустойчивость"}, dump[0].Columns[0].Values)
	assert.Equal(t, []string{"Задаёт уточняющие вопросы"}, dump[0].Columns[1].Values)
	assert.Empty(t, dump[1].Columns)
}

func TestValidateDocument(t *testing.T) {
	v := NewFileValidator(config.UploadConfig{MaxFileSize: 1024})

	assert.NoError(t, v.ValidateDocument(&entity.Document{FileName: "Карта поиска.XLSX", Size: 10}))
	assert.NoError(t, v.ValidateDocument(&entity.Document{FileName: "old.xls", Size: 10}))
	assert.ErrorIs(t, v.ValidateDocument(&entity.Document{FileName: "map.docx", Size: 10}), entity.ErrInvalidExtension)
	assert.ErrorIs(t, v.ValidateDocument(&entity.Document{FileName: "map.xlsx", Size: 4096}), entity.ErrFileTooLarge)
	assert.ErrorIs(t, v.ValidateDocument(nil), entity.ErrMissingField)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Карта_поиска_1.xlsx", SanitizeFilename("Карта поиска (1).xlsx"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "evil.xlsx", SanitizeFilename(`C:\tmp\evil.xlsx`))
}

func TestParseGrade(t *testing.T) {
	score, comment, err := ParseGrade("4 Хорошая карта, но мало контактов")
	require.NoError(t, err)
	assert.Equal(t, 4, score)
	assert.Equal(t, "Хорошая карта, но мало контактов", comment)

	score, comment, err = ParseGrade(" 2 ")
	require.NoError(t, err)
	assert.Equal(t, 2, score)
	assert.Empty(t, comment)

	_, _, err = ParseGrade("7 слишком")
	assert.ErrorIs(t, err, entity.ErrInvalidScore)

	_, _, err = ParseGrade("отлично")
	assert.ErrorIs(t, err, entity.ErrInvalidScore)

	_, _, err = ParseGrade("")
	assert.ErrorIs(t, err, entity.ErrMissingField)
}
