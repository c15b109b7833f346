package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(rows int) Dataset {
	data := Dataset{Headers: []string{"Mata Kuliah", "Selesai", "Progress"}}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{
			"Mata Kuliah": fmt.Sprintf("MK %d", i),
			"Selesai":     "3/8",
			"Progress":    "38%",
		})
	}
	return data
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestCSVRenderFollowsHeaders(t *testing.T) {
	data := sample(1)
	data.Rows = append(data.Rows, map[string]string{"Progress": "0%"})

	out, err := NewCSVExporter().Render(data)

	require.NoError(t, err)
	assert.Equal(t, "Mata Kuliah,Selesai,Progress\nMK 0,3/8,38%\n,,0%\n", string(out))
}

func TestCSVOptionsAndFormulaGuard(t *testing.T) {
	data := Dataset{
		Headers: []string{"Mahasiswa", "Progress"},
		Rows:    []map[string]string{{"Mahasiswa": "=HYPERLINK(\"x\")", "Progress": "38%"}, {"Mahasiswa": "@Budi", "Progress": "-"}},
	}

	out, err := NewRenderer(WithDelimiter(';'), WithExcelBOM()).Render(FormatCSV, data, "")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "Mahasiswa;Progress\n\"'=HYPERLINK(\"\"x\"\")\";38%\n'@Budi;-\n", string(out[len(utf8BOM):]))

	out, err = NewCSVExporter(WithDelimiter('"')).Render(data)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Mahasiswa,Progress\n")
}

func TestRenderRequiresHeaders(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render(FormatCSV, Dataset{}, "")
	assert.Error(t, err)
	_, err = r.Render(FormatPDF, Dataset{}, "")
	assert.Error(t, err)
	_, err = r.Render("xml", sample(1), "")
	assert.Error(t, err)
}

func TestPDFRenderPaginates(t *testing.T) {
	out, err := NewRenderer().Render(FormatPDF, sample(120), "Progress Tuton Budi")

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
