package etl

import (
	"log/slog"
	"strconv"
	"strings"
)

// normalizeID folds numeric IDs exported as "5", "5.0", or " 5" to a
// single string form usable as a lookup key.
func normalizeID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return value
}

// EnrichWithCompanies fills product and offer lab names from the company
// list. Returns the number of products and offers enriched.
func EnrichWithCompanies(products []Product, offers []Offer, companies []Company, logger *slog.Logger) (int, int) {
	companyNames := make(map[string]string, len(companies))
	for _, c := range companies {
		if c.Title != "" {
			companyNames[strconv.FormatInt(c.ID, 10)] = strings.TrimSpace(c.Title)
		}
	}

	productCount := 0
	for i := range products {
		if name, ok := companyNames[normalizeID(products[i].EnterpriseID)]; ok {
			products[i].EnterpriseTitle = name
			productCount++
		}
	}

	offerCount := 0
	for i := range offers {
		if offers[i].SupplierTitle != "" {
			continue
		}
		if name, ok := companyNames[normalizeID(offers[i].SupplierID)]; ok {
			offers[i].SupplierTitle = name
			offerCount++
		}
	}

	logger.Info("company enrichment done",
		slog.Int("products", productCount),
		slog.Int("offers", offerCount))
	return productCount, offerCount
}

// EnrichWithCategories fills product category names from the category list.
func EnrichWithCategories(products []Product, categories []Category, logger *slog.Logger) int {
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[normalizeID(c.ID)] = strings.TrimSpace(c.Title)
	}

	count := 0
	for i := range products {
		if name, ok := categoryNames[normalizeID(products[i].CategoryID)]; ok {
			products[i].CategoryName = name
			count++
		}
	}

	logger.Info("category enrichment done", slog.Int("products", count))
	return count
}

// EnrichWithCompendium joins products against the clinical compendium by
// normalized product name and copies clinical fields onto the matches.
func EnrichWithCompendium(products []Product, entries []CompendiumEntry, logger *slog.Logger) int {
	index := make(map[string]CompendiumEntry, len(entries))
	for _, entry := range entries {
		if key := NormalizeForMatch(entry.Product); key != "" {
			index[key] = entry
		}
	}

	count := 0
	for i := range products {
		entry, ok := index[NormalizeForMatch(products[i].Title)]
		if !ok {
			continue
		}

		products[i].Species = entry.Species

		var indications []string
		if entry.Symptoms != "" {
			indications = append(indications, entry.Symptoms)
		}
		if entry.Diagnosis != "" {
			indications = append(indications, entry.Diagnosis)
		}
		products[i].MedicalIndications = strings.Join(indications, " ")

		products[i].TherapeuticAction = entry.TherapeuticAction
		products[i].Contraindications = entry.Contraindications

		var dosage []string
		if entry.Usage != "" {
			dosage = append(dosage, entry.Usage)
		}
		if entry.Dosage != "" {
			dosage = append(dosage, entry.Dosage)
		}
		products[i].ClinicalDosage = strings.Join(dosage, ". ")

		count++
	}

	logger.Info("compendium enrichment done", slog.Int("products", count))
	return count
}

// EnrichOffersWithProducts copies product details onto offers through the
// offer-product link table, inheriting clinical data from the compendium
// join.
func EnrichOffersWithProducts(offers []Offer, products []Product, links []OfferProduct, logger *slog.Logger) int {
	productIndex := make(map[string]Product, len(products))
	for _, p := range products {
		productIndex[strconv.FormatInt(p.ID, 10)] = p
	}
	offerToProduct := make(map[string]string, len(links))
	for _, l := range links {
		offerToProduct[normalizeID(l.OfferID)] = normalizeID(l.ProductID)
	}

	count := 0
	for i := range offers {
		productID, ok := offerToProduct[strconv.FormatInt(offers[i].ID, 10)]
		if !ok {
			continue
		}
		product, ok := productIndex[productID]
		if !ok {
			continue
		}

		offers[i].ProductName = product.Title
		offers[i].ActiveIngredient = product.ActiveIngredient
		offers[i].TherapeuticAction = product.TherapeuticAction
		offers[i].CategoryName = product.CategoryName
		offers[i].Species = product.Species
		if offers[i].SupplierTitle == "" {
			offers[i].SupplierTitle = product.EnterpriseTitle
		}

		count++
	}

	logger.Info("offer enrichment done", slog.Int("offers", count))
	return count
}
