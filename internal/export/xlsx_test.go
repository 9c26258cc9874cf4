package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/KennyGael/Hazard-Atlas/internal/model"
)

func testRecords() []model.Recall {
	return []model.Recall{
		{ID: "F-1", Source: model.SourceFood, Product: "Frozen spinach", Firm: "Acme Foods", Country: "United States"},
		{ID: "D-1", Source: model.SourceDrug, Product: "Cough syrup", Firm: "PharmaCo", Country: "Canada"},
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, testRecords()))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, "Recalls", sheet.Name)
	require.Len(t, sheet.Rows, 3) // header + 2 records
	assert.Equal(t, "ID", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "F-1", sheet.Rows[1].Cells[0].Value)
	assert.Equal(t, "drug", sheet.Rows[2].Cells[1].Value)
}

func TestWriteXLSX_EmptySet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets[0].Rows, 1, "header only")
}

func TestSaveXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recalls.xlsx")
	require.NoError(t, SaveXLSX(path, testRecords()))

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Len(t, file.Sheets[0].Rows, 3)
}
