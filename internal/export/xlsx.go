// Package export writes the unified record set to spreadsheet form.
package export

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/KennyGael/Hazard-Atlas/internal/model"
)

var xlsxHeader = []string{
	"ID", "Source", "Report Date", "Classification",
	"Product", "Firm", "Reason", "Quantity",
	"Address", "City", "State", "Country",
}

// WriteXLSX writes records as a single-sheet workbook to w.
func WriteXLSX(w io.Writer, records []model.Recall) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Recalls")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().Value = h
	}

	for _, r := range records {
		row := sheet.AddRow()
		for _, v := range []string{
			r.ID, string(r.Source), r.ReportDate, r.Classification,
			r.Product, r.Firm, r.Reason, r.Quantity,
			r.Address, r.City, r.State, r.Country,
		} {
			row.AddCell().Value = v
		}
	}

	return eris.Wrap(file.Write(w), "export: write workbook")
}

// SaveXLSX writes records to a workbook file at path.
func SaveXLSX(path string, records []model.Recall) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close() //nolint:errcheck

	return WriteXLSX(f, records)
}
