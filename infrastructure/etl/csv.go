package etl

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// csvTable is a parsed CSV file with header-keyed row access.
type csvTable struct {
	columns map[string]int
	rows    [][]string
}

// get returns the named column of a row, empty when the column is absent.
// Header names are matched case-insensitively with surrounding whitespace
// trimmed.
func (t csvTable) get(row []string, column string) string {
	idx, ok := t.columns[strings.ToLower(column)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (t csvTable) has(column string) bool {
	_, ok := t.columns[strings.ToLower(column)]
	return ok
}

// readCSVTable parses a CSV file. The delimiter is sniffed from the header
// line (comma, semicolon, or tab) since exported spreadsheets vary. A UTF-8
// BOM is stripped if present. Rows with the wrong field count are kept —
// missing trailing columns read as empty.
func readCSVTable(path string) (csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return csvTable{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	header, err := br.Peek(2048)
	if err != nil && err != io.EOF {
		return csvTable{}, fmt.Errorf("read csv header: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(string(header))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return csvTable{}, fmt.Errorf("parse csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return csvTable{}, fmt.Errorf("csv %s: empty file", path)
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		name = strings.TrimPrefix(name, "\uFEFF")
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return csvTable{columns: columns, rows: records[1:]}, nil
}

// sniffDelimiter picks the delimiter with the most occurrences in the
// first line, defaulting to comma.
func sniffDelimiter(sample string) rune {
	if idx := strings.IndexByte(sample, '\n'); idx >= 0 {
		sample = sample[:idx]
	}
	best, bestCount := ',', strings.Count(sample, ",")
	for _, candidate := range []rune{';', '\t'} {
		if count := strings.Count(sample, string(candidate)); count > bestCount {
			best, bestCount = candidate, count
		}
	}
	return best
}

func (t csvTable) requireColumns(path string, names ...string) error {
	var missing []string
	for _, name := range names {
		if !t.has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("csv %s: missing columns %v", path, missing)
	}
	return nil
}

// ParseProductsCSV parses the products source. Required columns: id,
// title, description.
func ParseProductsCSV(path string) ([]Product, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.requireColumns(path, "id", "title", "description"); err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(table.rows))
	for _, row := range table.rows {
		id, err := strconv.ParseInt(table.get(row, "id"), 10, 64)
		if err != nil {
			continue
		}
		products = append(products, Product{
			ID:                id,
			Title:             table.get(row, "title"),
			Description:       table.get(row, "description"),
			ActiveIngredient:  table.get(row, "active_ingredient"),
			TherapeuticAction: table.get(row, "therapeutic_action"),
			EnterpriseID:      table.get(row, "enterprise_id"),
			EnterpriseTitle:   table.get(row, "enterprise_title"),
			CategoryID:        table.get(row, "category_id"),
		})
	}
	return products, nil
}

// ParseOffersCSV parses the offers source. Required columns: id, title,
// description.
func ParseOffersCSV(path string) ([]Offer, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.requireColumns(path, "id", "title", "description"); err != nil {
		return nil, err
	}

	offers := make([]Offer, 0, len(table.rows))
	for _, row := range table.rows {
		id, err := strconv.ParseInt(table.get(row, "id"), 10, 64)
		if err != nil {
			continue
		}
		offers = append(offers, Offer{
			ID:            id,
			Title:         table.get(row, "title"),
			Description:   table.get(row, "description"),
			DateFrom:      table.get(row, "date_from"),
			DateTo:        table.get(row, "date_to"),
			SupplierID:    table.get(row, "enterprise_supplier_id"),
			SupplierTitle: table.get(row, "enterprise_supplier_title"),
		})
	}
	return offers, nil
}

// ParseCompaniesCSV parses the companies source, keeping only suppliers
// (enterprise_type_id == 1).
func ParseCompaniesCSV(path string) ([]Company, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.requireColumns(path, "id", "title", "enterprise_type_id"); err != nil {
		return nil, err
	}

	companies := make([]Company, 0, len(table.rows))
	for _, row := range table.rows {
		typeID, err := strconv.Atoi(table.get(row, "enterprise_type_id"))
		if err != nil || typeID != 1 {
			continue
		}
		id, err := strconv.ParseInt(table.get(row, "id"), 10, 64)
		if err != nil {
			continue
		}
		companies = append(companies, Company{
			ID:          id,
			Title:       table.get(row, "title"),
			Email:       table.get(row, "email"),
			Description: table.get(row, "description"),
			TypeID:      typeID,
		})
	}
	return companies, nil
}

// ParseCategoriesCSV parses the categories source.
func ParseCategoriesCSV(path string) ([]Category, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.requireColumns(path, "id", "title"); err != nil {
		return nil, err
	}

	categories := make([]Category, 0, len(table.rows))
	for _, row := range table.rows {
		id := table.get(row, "id")
		if id == "" {
			continue
		}
		categories = append(categories, Category{
			ID:    id,
			Title: table.get(row, "title"),
		})
	}
	return categories, nil
}

// ParseOfferProductsCSV parses the offer-to-product link table.
func ParseOfferProductsCSV(path string) ([]OfferProduct, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.requireColumns(path, "offer_id", "product_id"); err != nil {
		return nil, err
	}

	links := make([]OfferProduct, 0, len(table.rows))
	for _, row := range table.rows {
		offerID := table.get(row, "offer_id")
		productID := table.get(row, "product_id")
		if offerID == "" || productID == "" {
			continue
		}
		links = append(links, OfferProduct{OfferID: offerID, ProductID: productID})
	}
	return links, nil
}

// compendiumPlaceholders are values that mean "no data" in the compendium
// export.
var compendiumPlaceholders = map[string]struct{}{
	"0": {}, "n/a": {}, "none": {},
}

func compendiumField(value string) string {
	if _, ok := compendiumPlaceholders[strings.ToLower(strings.TrimSpace(value))]; ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// ParseCompendiumCSV parses the clinical compendium source. Column headers
// come from a hand-maintained spreadsheet, hence the loose matching.
func ParseCompendiumCSV(path string) ([]CompendiumEntry, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.requireColumns(path, "producto"); err != nil {
		return nil, err
	}

	entries := make([]CompendiumEntry, 0, len(table.rows))
	for _, row := range table.rows {
		name := table.get(row, "producto")
		if name == "" {
			continue
		}

		var species []string
		for _, s := range strings.Split(table.get(row, "especie"), ",") {
			if s = strings.TrimSpace(s); s != "" {
				species = append(species, s)
			}
		}

		entries = append(entries, CompendiumEntry{
			Product:           name,
			Species:           species,
			Symptoms:          compendiumField(table.get(row, "sintomas")),
			Diagnosis:         compendiumField(table.get(row, "diagnostico")),
			TherapeuticAction: compendiumField(table.get(row, "accion terapeutica")),
			Contraindications: compendiumField(table.get(row, "contra indicaciones / precauciones")),
			Usage:             compendiumField(table.get(row, "modo de usos")),
			Dosage:            compendiumField(table.get(row, "dosificación")),
		})
	}
	return entries, nil
}
