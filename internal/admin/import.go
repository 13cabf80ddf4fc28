// internal/admin/import.go
package admin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"pixelverk/internal/logger"
)

// RowResult is the outcome for one spreadsheet row.
type RowResult struct {
	Row       int    `json:"row"`
	ProductID string `json:"productId,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// ImportResult summarizes a catalog import.
type ImportResult struct {
	Result
	Imported int         `json:"imported"`
	Rows     []RowResult `json:"rows"`
}

var requiredColumns = []string{"category", "name", "description", "price"}

// ImportCatalog creates one product per row of the first sheet of an Excel
// workbook. The header row names the columns: category, id, name,
// description, price and stock (id and stock are optional). Every row goes
// through CreateProduct, so duplicates and invalid rows are reported per row
// without stopping the import.
func (s *Service) ImportCatalog(ctx context.Context, access Access, workbook io.Reader) ImportResult {
	ctx, span := tracer.Start(ctx, "admin.ImportCatalog")
	defer span.End()

	res := s.importCatalog(ctx, access, workbook)
	recordResult(span, res.Result)
	return res
}

func (s *Service) importCatalog(ctx context.Context, access Access, workbook io.Reader) ImportResult {
	if res, ok := authorize(access); !ok {
		return ImportResult{Result: res}
	}

	rows, err := readRows(workbook)
	if err != nil {
		logger.LogWarn("Rejected catalog workbook: %v", err)
		return ImportResult{Result: fail(InvalidWorkbook, "Could not read the workbook: "+err.Error())}
	}
	if len(rows) == 0 {
		return ImportResult{Result: fail(InvalidWorkbook, "The workbook is empty.")}
	}

	columns := headerIndex(rows[0])
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return ImportResult{Result: fail(InvalidWorkbook, fmt.Sprintf("Missing column %q.", name))}
		}
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := ImportResult{Rows: []RowResult{}}
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rowNumber := i + 2 // 1-based, after the header

		res := s.CreateProduct(ctx, access, CreateInput{
			Category:    cell(row, "category"),
			ProductID:   cell(row, "id"),
			Name:        cell(row, "name"),
			Description: cell(row, "description"),
			Price:       cell(row, "price"),
			Stock:       cell(row, "stock"),
		})
		if res.Kind == StorageFailure {
			logger.LogError("Import row %d failed: %v", rowNumber, res.Err())
		}

		id := cell(row, "id")
		if id == "" {
			id = cell(row, "name")
		}
		out.Rows = append(out.Rows, RowResult{
			Row:       rowNumber,
			ProductID: Slugify(id),
			Success:   res.Success,
			Message:   res.Message,
		})
		if res.Success {
			out.Imported++
		}
	}

	out.Result = succeed(fmt.Sprintf("Imported %d of %d products.", out.Imported, len(out.Rows)))
	return out
}

func readRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

func headerIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "productid" || key == "product id" {
			key = "id"
		}
		if _, dup := columns[key]; !dup && key != "" {
			columns[key] = i
		}
	}
	return columns
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
