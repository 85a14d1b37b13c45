package httpapi

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"

	"hitunghpp/backend/internal/domain"
)

var ingredientImportHeader = []string{
	"name", "description", "categoryName", "purchasePrice", "packageSize",
	"purchaseUnitName", "purchaseUnitSymbol", "usageUnitName", "usageUnitSymbol", "conversionFactor",
}

var priceListHeader = []string{
	"ID", "Nama Resep", "SKU", "Deskripsi", "Kategori", "HPP per Unit",
	"Harga Jual Saat Ini", "Margin Profit Saat Ini (%)", "Harga Jual Baru", "Alasan Perubahan",
}

const (
	priceListSheet = "Harga"
	xlsxMediaType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// readCSVUpload reads a CSV either from the "file" part of a multipart
// form or from the raw request body.
func readCSVUpload(r *http.Request) ([][]string, error) {
	var source io.Reader = r.Body
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing csv file: %w", err)
		}
		defer file.Close()
		source = file
	}

	reader := csv.NewReader(source)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv is empty")
	}
	records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	return records, nil
}

// columnIndex maps header names case-insensitively and fails when a
// required column is absent.
func columnIndex(header []string, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := index[strings.ToLower(name)]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
	}
	return index, nil
}

func cell(record []string, index map[string]int, name string) string {
	i, ok := index[strings.ToLower(name)]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseIngredientRows(records [][]string) ([]domain.IngredientImportRow, error) {
	index, err := columnIndex(records[0], []string{"name", "purchasePrice"})
	if err != nil {
		return nil, err
	}

	rows := make([]domain.IngredientImportRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, domain.IngredientImportRow{
			Line:               i + 2,
			Name:               cell(record, index, "name"),
			Description:        cell(record, index, "description"),
			CategoryName:       cell(record, index, "categoryName"),
			PurchasePrice:      cell(record, index, "purchasePrice"),
			PackageSize:        cell(record, index, "packageSize"),
			PurchaseUnitName:   cell(record, index, "purchaseUnitName"),
			PurchaseUnitSymbol: cell(record, index, "purchaseUnitSymbol"),
			UsageUnitName:      cell(record, index, "usageUnitName"),
			UsageUnitSymbol:    cell(record, index, "usageUnitSymbol"),
			ConversionFactor:   cell(record, index, "conversionFactor"),
		})
	}
	return rows, nil
}

func parseRecipePriceRows(records [][]string) ([]domain.RecipePriceImportRow, error) {
	index, err := columnIndex(records[0], []string{"ID", "Harga Jual Baru"})
	if err != nil {
		return nil, err
	}

	rows := make([]domain.RecipePriceImportRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, domain.RecipePriceImportRow{
			Line:     i + 2,
			RecipeID: cell(record, index, "ID"),
			NewPrice: cell(record, index, "Harga Jual Baru"),
			Reason:   cell(record, index, "Alasan Perubahan"),
		})
	}
	return rows, nil
}

// priceListRecord leaves the new-price and reason columns blank for the
// user to fill before re-importing.
func priceListRecord(entry domain.PriceListEntry) []string {
	return []string{
		entry.RecipeID,
		entry.Name,
		entry.SKU,
		entry.Description,
		entry.CategoryName,
		entry.CogsPerServing.String(),
		entry.SellingPrice.String(),
		entry.ProfitMargin.String(),
		"",
		"",
	}
}

func priceListCSV(entries []domain.PriceListEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(priceListHeader); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if err := writer.Write(priceListRecord(entry)); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func priceListXLSX(entries []domain.PriceListEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", priceListSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.SetSheetRow(priceListSheet, "A1", &priceListHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	for i, entry := range entries {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		cogs, _ := entry.CogsPerServing.Float64()
		price, _ := entry.SellingPrice.Float64()
		margin, _ := entry.ProfitMargin.Float64()
		row := []any{entry.RecipeID, entry.Name, entry.SKU, entry.Description, entry.CategoryName, cogs, price, margin, "", ""}
		if err := f.SetSheetRow(priceListSheet, axis, &row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (a *API) handleImportRecipePrices(w http.ResponseWriter, r *http.Request) {
	records, err := readCSVUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := parseRecipePriceRows(records)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.service.ImportRecipePrices(r.Context(), businessID(r), rows)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleExportPriceList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.service.PriceList(r.Context(), businessID(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "", "csv":
		body, err := priceListCSV(entries)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="daftar-harga.csv"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	case "xlsx":
		f, err := priceListXLSX(entries)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		defer f.Close()

		var buf bytes.Buffer
		if err := f.Write(&buf); err != nil {
			a.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", xlsxMediaType)
		w.Header().Set("Content-Disposition", `attachment; filename="daftar-harga.xlsx"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, errors.New("format must be csv or xlsx"))
	}
}
