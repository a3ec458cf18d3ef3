package trainee

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/presence/core"
)

// ErrUnsupportedFormat is returned for files that are neither csv nor xlsx.
var ErrUnsupportedFormat = core.NewValidationError(errors.New("unsupported file format: expected .csv or .xlsx"))

// Row is one parsed line of an import file. Line is 1-based and counts the header.
type Row struct {
	Line      int
	CEF       string
	Name      string
	FirstName string
	Group     string
	Phone     string
}

const (
	colCEF = iota
	colName
	colFirstName
	colGroup
	colPhone
)

// headerAliases maps folded header labels to columns.
var headerAliases = map[string]int{
	"cef":         colCEF,
	"code":        colCEF,
	"matricule":   colCEF,
	"nom":         colName,
	"name":        colName,
	"last name":   colName,
	"lastname":    colName,
	"prenom":      colFirstName,
	"first name":  colFirstName,
	"firstname":   colFirstName,
	"groupe":      colGroup,
	"group":       colGroup,
	"classe":      colGroup,
	"telephone":   colPhone,
	"tel":         colPhone,
	"phone":       colPhone,
	"portable":    colPhone,
	"numero":      colPhone,
	"num tel":     colPhone,
	"n telephone": colPhone,
}

// ParseFile reads trainee rows from a csv or xlsx file, using the first sheet of a workbook.
func ParseFile(r io.Reader, filename string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(r)
	case ".xlsx", ".xlsm":
		return parseXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func parseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "reading csv"))
	}
	// excel exports csv with ';' in french locales
	if len(records) > 0 && len(records[0]) == 1 && strings.Contains(records[0][0], ";") {
		for i, rec := range records {
			records[i] = strings.Split(strings.Join(rec, ","), ";")
		}
	}
	return mapRecords(records)
}

func parseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "reading xlsx"))
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError(errors.New("workbook has no sheet"))
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "reading sheet"))
	}
	return mapRecords(records)
}

func mapRecords(records [][]string) ([]Row, error) {
	headerIdx := -1
	var cols map[int]int // {record index: column}
	for i, rec := range records {
		if cols = mapHeader(rec); cols != nil {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, core.NewValidationError(errors.New("header row not found: expected at least CEF, Nom and Groupe columns"))
	}

	rows := make([]Row, 0, len(records)-headerIdx-1)
	for i, rec := range records[headerIdx+1:] {
		row := Row{Line: headerIdx + i + 2}
		empty := true
		for idx, val := range rec {
			col, ok := cols[idx]
			if !ok {
				continue
			}
			val = strings.TrimSpace(val)
			if val != "" {
				empty = false
			}
			switch col {
			case colCEF:
				row.CEF = val
			case colName:
				row.Name = val
			case colFirstName:
				row.FirstName = val
			case colGroup:
				row.Group = val
			case colPhone:
				row.Phone = val
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// mapHeader returns nil unless rec holds the mandatory CEF, Nom and Groupe columns.
func mapHeader(rec []string) map[int]int {
	cols := make(map[int]int)
	seen := make(map[int]bool)
	for idx, label := range rec {
		label = strings.Join(strings.Fields(strings.NewReplacer("°", " ", ".", " ", "_", " ", "-", " ").Replace(core.FoldString(label))), " ")
		if col, ok := headerAliases[label]; ok && !seen[col] {
			cols[idx] = col
			seen[col] = true
		}
	}
	if seen[colCEF] && seen[colName] && seen[colGroup] {
		return cols
	}
	return nil
}
