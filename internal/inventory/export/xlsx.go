// Package export renders inventory reports as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/medflow/medstock/internal/inventory/repository"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of an XLSX workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names
const (
	StockSheet       = "Items"
	TransactionSheet = "Transaction History"
)

var (
	stockHeader       = []interface{}{"Item Code", "Item Name", "Barcode", "Quantity", "Expiry Date"}
	transactionHeader = []interface{}{"Date/Time", "Item Name", "Item Code", "Barcode", "Transaction Type", "Quantity Change", "Notes"}
)

// StockFilename returns the download name of a category's stock report
func StockFilename(category repository.Category) string {
	return fmt.Sprintf("Report_%s.xlsx", category)
}

// TransactionFilename returns the download name of a category's transaction report
func TransactionFilename(category repository.Category) string {
	return fmt.Sprintf("Transaction_Report_%s.xlsx", category)
}

// StockWorkbook renders the current-stock report
func StockWorkbook(rows []repository.StockRow) ([]byte, error) {
	values := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		values = append(values, []interface{}{r.Code, r.Name, r.Barcode, r.Quantity, r.ExpiryDate})
	}
	return workbook(StockSheet, stockHeader, values)
}

// TransactionWorkbook renders the transaction-history report
func TransactionWorkbook(rows []repository.TransactionRow) ([]byte, error) {
	values := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		values = append(values, []interface{}{r.Timestamp, r.ItemName, r.ItemCode, r.Barcode, r.Type, r.QuantityChange, r.Notes})
	}
	return workbook(TransactionSheet, transactionHeader, values)
}

func workbook(sheet string, header []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
