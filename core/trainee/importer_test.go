package trainee

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/presence/core"
)

func TestParseFile_csv(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		want     []Row
		wantFail bool
	}{
		{
			name:    "comma separated",
			content: "CEF,Nom,Prénom,Groupe\nC100,Alaoui,Amine,DEV101\n",
			want:    []Row{{Line: 2, CEF: "C100", Name: "Alaoui", FirstName: "Amine", Group: "DEV101"}},
		},
		{
			name: "semicolon separated with a title and blank lines",
			content: "Liste des stagiaires;;;;\n" +
				"Matricule;NOM;Prenom;Classe;N° Téléphone\n" +
				"C100; Alaoui ;Amine;DEV101;0600000000\n" +
				";;;;\n" +
				"C200;Bennani;;DEV102;\n",
			want: []Row{
				{Line: 3, CEF: "C100", Name: "Alaoui", FirstName: "Amine", Group: "DEV101", Phone: "0600000000"},
				{Line: 5, CEF: "C200", Name: "Bennani", Group: "DEV102"},
			},
		},
		{
			name:    "extra columns are ignored",
			content: "id,code,name,first_name,group,email\n1,C100,Alaoui,Amine,DEV101,a@test.ma\n",
			want:    []Row{{Line: 2, CEF: "C100", Name: "Alaoui", FirstName: "Amine", Group: "DEV101"}},
		},
		{name: "no header", content: "C100,Alaoui,Amine,DEV101\n", wantFail: true},
		{name: "missing group column", content: "CEF,Nom,Prénom\nC100,Alaoui,Amine\n", wantFail: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ParseFile(strings.NewReader(tt.content), "stagiaires.CSV")
			if tt.wantFail {
				assert.True(t, core.IsValidationError(err), "%v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestParseFile_xlsx(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]interface{}{
		{"CEF", "Nom", "Prénom", "Groupe", "Téléphone"},
		{"C100", "Alaoui", "Amine", "DEV101", "0600000000"},
		{"C200", "Bennani", "Sara", "DEV 101"},
	} {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := ParseFile(&buf, "stagiaires.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{Line: 2, CEF: "C100", Name: "Alaoui", FirstName: "Amine", Group: "DEV101", Phone: "0600000000"},
		{Line: 3, CEF: "C200", Name: "Bennani", FirstName: "Sara", Group: "DEV 101"},
	}, rows)

	_, err = ParseFile(strings.NewReader("not a workbook"), "stagiaires.xlsx")
	assert.True(t, core.IsValidationError(err))
}

func TestParseFile_unsupported(t *testing.T) {
	_, err := ParseFile(strings.NewReader("%PDF"), "stagiaires.pdf")
	assert.Equal(t, ErrUnsupportedFormat, err)
}
