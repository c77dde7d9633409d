package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Sarthak207/FlexiCart/internal/models"
)

// CartReceiptHeader 小票表头
var CartReceiptHeader = []string{
	"Product ID",
	"Name",
	"Scan Type",
	"Quantity",
	"Unit Price",
	"Line Total",
	"Unit Weight (g)",
	"First Added",
	"Last Updated",
}

var cartReceiptWidths = []float64{12, 28, 12, 10, 12, 12, 16, 22, 22}

const cartReceiptSheet = "Cart"

// GenerateCartReceipt 生成购物车小票 Excel
// 最后一行为合计（数量、金额、预估重量）
func GenerateCartReceipt(cart models.Cart) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(cartReceiptSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(cartReceiptSheet, "A1", &CartReceiptHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(CartReceiptHeader))
	if err := f.SetCellStyle(cartReceiptSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	for i, width := range cartReceiptWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(cartReceiptSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, item := range cart.Items {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			item.ProductID,
			item.Name,
			string(item.ScanType),
			item.Quantity,
			item.UnitPrice,
			float64(item.Quantity) * item.UnitPrice,
			item.UnitWeight,
			formatTime(item.FirstAddedAt),
			formatTime(item.LastUpdatedAt),
		}
		if err := f.SetSheetRow(cartReceiptSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	totalRow := len(cart.Items) + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	totals := []any{"TOTAL", "", "", cart.TotalQuantity, "", cart.TotalPrice, cart.ExpectedWeight}
	if err := f.SetSheetRow(cartReceiptSheet, cell, &totals); err != nil {
		return nil, fmt.Errorf("failed to write totals: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
