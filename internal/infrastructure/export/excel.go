// Package export renders claim lists into downloadable spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/entity"
)

// SheetName is the worksheet holding the claim rows
const SheetName = "Claims"

var headers = []string{
	"Claim ID", "Date Received", "Corporate", "Employee", "Employee ID",
	"Amount", "Type", "Reimbursement", "Status", "Documents", "Files", "Notes", "Submitted At",
}

// ExcelExporter implements port.ReportExporter with excelize
type ExcelExporter struct{}

// NewExcelExporter creates a new exporter
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// ContentType is the MIME type of the produced workbook
func (e *ExcelExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileExtension is the extension of the produced workbook
func (e *ExcelExporter) FileExtension() string {
	return ".xlsx"
}

// WriteClaims writes one header row and one row per claim
func (e *ExcelExporter) WriteClaims(w io.Writer, claims []*entity.Claim) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	for col, h := range headers {
		if err := setCell(f, col+1, 1, h); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, c := range claims {
		row := i + 2
		values := []interface{}{
			c.ID,
			c.DateReceived.Format("2006-01-02"),
			c.CorporateName,
			c.EmployeeName,
			deref(c.EmployeeID),
			c.ClaimAmount.Round(2).InexactFloat64(),
			c.ClaimType,
			c.ReimbursementMethod,
			c.CurrentStatus.String(),
			c.DocumentsStatus,
			strings.Join(c.FileURLs, "\n"),
			deref(c.Notes),
			c.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return err
			}
		}
		amountCell, _ := excelize.CoordinatesToCellName(6, row)
		if err := f.SetCellStyle(SheetName, amountCell, amountCell, amountStyle); err != nil {
			return fmt.Errorf("failed to style amount: %w", err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "M", 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ port.ReportExporter = (*ExcelExporter)(nil)
