package etl

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/integhra/ragstore/domain/embedding"
)

// Entity types emitted by the transformers.
const (
	EntityProduct = "product"
	EntityOffer   = "offer"
	EntityCompany = "company"
)

// Draft is a transformed record awaiting its embedding vector.
type Draft struct {
	EntityType  string
	EntityID    int64
	ContentText string
	Metadata    map[string]any
}

// garbageTitles are titles that carry no product identity: test rows,
// placeholders, and bare brand names that show up without a real product.
var garbageTitles = map[string]struct{}{
	"asas": {}, "test": {}, "prueba": {}, "vario": {}, "varios": {},
	"s/n": {}, "s/d": {}, "sin nombre": {}, "pendiente": {}, "generico": {},
	"a confirmar": {}, "bonificacion": {}, "descuento": {},
	"konig": {}, "labyes": {}, "bayer": {}, "zoetis": {}, "john martin": {},
	"holliday": {}, "brower": {}, "over": {}, "ruminal": {}, "proagro": {},
	"biogenesis": {}, "bago": {},
}

// ProductQualityOK reports whether a product row carries enough identity
// to be worth indexing. Rejects short titles, blacklisted placeholders,
// rows whose title is just the lab name, and single-word titles contained
// in the lab name.
func ProductQualityOK(p Product) bool {
	normTitle := FoldAccents(strings.TrimSpace(p.Title))
	normLab := FoldAccents(strings.TrimSpace(p.EnterpriseTitle))

	if len(normTitle) < 3 {
		return false
	}
	if _, ok := garbageTitles[normTitle]; ok {
		return false
	}
	if normLab != "" && normLab != "n/a" && normTitle == normLab {
		return false
	}
	words := strings.Fields(normTitle)
	if len(words) == 1 && normLab != "" && strings.Contains(normLab, words[0]) {
		return false
	}
	return true
}

// FilterProducts drops low-quality rows, logging each rejection.
func FilterProducts(products []Product, logger *slog.Logger) []Product {
	kept := make([]Product, 0, len(products))
	for _, p := range products {
		if ProductQualityOK(p) {
			kept = append(kept, p)
			continue
		}
		logger.Debug("product rejected by quality filter",
			slog.Int64("id", p.ID),
			slog.String("title", p.Title),
			slog.String("lab", p.EnterpriseTitle))
	}
	if skipped := len(products) - len(kept); skipped > 0 {
		logger.Info("quality filter done", slog.Int("kept", len(kept)), slog.Int("skipped", skipped))
	}
	return kept
}

// ProductText builds the compact identity text embedded for a product:
// category, expanded title, lab, drug, species, and clinical keywords.
func ProductText(p Product) string {
	var parts []string

	if p.CategoryName != "" {
		parts = append(parts, p.CategoryName)
	}
	if p.Title != "" {
		parts = append(parts, ExpandTitle(p.Title))
	}
	if p.EnterpriseTitle != "" {
		parts = append(parts, "Laboratorio "+p.EnterpriseTitle)
	}
	if p.ActiveIngredient != "" {
		parts = append(parts, "Droga "+p.ActiveIngredient)
	}
	if len(p.Species) > 0 {
		parts = append(parts, "Especies "+strings.Join(p.Species, " "))
	}

	keywords := ClinicalKeywords(p.MedicalIndications)
	for k := range ClinicalKeywords(p.TherapeuticAction) {
		keywords[k] = struct{}{}
	}
	if len(keywords) > 0 {
		parts = append(parts, strings.Join(sortedKeywords(keywords), " "))
	}

	return strings.Join(parts, ". ")
}

// OfferText builds the identity text embedded for an offer.
func OfferText(o Offer) string {
	parts := []string{"Oferta " + ExpandTitle(o.Title)}
	if o.ProductName != "" {
		parts = append(parts, o.ProductName)
	}
	if o.SupplierTitle != "" {
		parts = append(parts, "Proveedor "+o.SupplierTitle)
	}
	if o.ActiveIngredient != "" {
		parts = append(parts, "Droga "+o.ActiveIngredient)
	}
	return strings.Join(parts, ". ")
}

// CompanyText builds the identity text embedded for a supplier.
func CompanyText(c Company) string {
	var parts []string
	if c.Title != "" {
		parts = append(parts, "Empresa "+c.Title)
	}
	if c.Description != "" {
		parts = append(parts, c.Description)
	}
	return strings.Join(parts, ". ")
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// TransformProducts builds drafts for quality-filtered products.
func TransformProducts(products []Product) []Draft {
	drafts := make([]Draft, 0, len(products))
	for _, p := range products {
		titleExpanded := ExpandTitle(p.Title)
		tags := SpecialTags(titleExpanded)
		parsed := ParseTitleMetadata(p.Title)

		labClean := NormalizeForFilter(p.EnterpriseTitle)
		catClean := NormalizeForFilter(p.CategoryName)
		drugClean := NormalizeForFilter(p.ActiveIngredient)

		keywords := map[string]struct{}{}
		addKeyword(keywords, labClean)
		addKeyword(keywords, catClean)
		addKeyword(keywords, drugClean)
		for _, word := range strings.Fields(strings.ToLower(titleExpanded)) {
			if clean := NormalizeForFilter(word); len(clean) > 2 {
				keywords[clean] = struct{}{}
			}
		}
		speciesClean := make([]string, 0, len(p.Species))
		for _, sp := range p.Species {
			clean := NormalizeForFilter(sp)
			speciesClean = append(speciesClean, clean)
			addKeyword(keywords, clean)
		}
		for k := range ClinicalKeywords(p.MedicalIndications) {
			keywords[k] = struct{}{}
		}
		for k := range ClinicalKeywords(p.TherapeuticAction) {
			keywords[k] = struct{}{}
		}

		basePhrase := FoldAccents(titleExpanded)
		searchKeywords := CollapseSpaces(basePhrase + " " + strings.Join(sortedKeywords(keywords), " "))

		metadata := map[string]any{
			embedding.MetaTitle:          truncate(p.Title, 200),
			"enterprise_title":           p.EnterpriseTitle,
			"category":                   p.CategoryName,
			"drug":                       truncate(p.ActiveIngredient, 100),
			"action":                     truncate(p.TherapeuticAction, 100),
			"medical_indications":        truncate(p.MedicalIndications, 1000),
			"contraindications":          truncate(p.Contraindications, 500),
			"clinical_dosage":            truncate(p.ClinicalDosage, 300),
			"description":                truncate(p.Description, 500),
			embedding.MetaFilterLab:      labClean,
			embedding.MetaFilterCategory: catClean,
			"filter_drug":                drugClean,
			embedding.MetaSearchKeywords: searchKeywords,
			embedding.MetaSpeciesFilter:  strings.Join(speciesClean, " "),
			"tags":                       tags,
			embedding.MetaIsOffer:        false,
		}
		if parsed.DosageValue > 0 {
			metadata[embedding.MetaDosageValue] = parsed.DosageValue
			metadata["dosage_unit"] = parsed.DosageUnit
		}
		if parsed.WeightRange != "" {
			metadata["weight_range"] = parsed.WeightRange
		}
		if parsed.Presentation != "" {
			metadata["presentation"] = parsed.Presentation
		}

		drafts = append(drafts, Draft{
			EntityType:  EntityProduct,
			EntityID:    p.ID,
			ContentText: ProductText(p),
			Metadata:    metadata,
		})
	}
	return drafts
}

// TransformOffers builds drafts for offers.
func TransformOffers(offers []Offer) []Draft {
	drafts := make([]Draft, 0, len(offers))
	for _, o := range offers {
		titleExpanded := ExpandTitle(o.Title)
		tags := SpecialTags(titleExpanded)
		parsed := ParseTitleMetadata(o.Title)
		labClean := NormalizeForFilter(o.SupplierTitle)

		keywords := map[string]struct{}{}
		addKeyword(keywords, labClean)
		addKeyword(keywords, NormalizeForFilter(o.ProductName))
		for _, word := range strings.Fields(strings.ToLower(titleExpanded)) {
			if clean := NormalizeForFilter(word); len(clean) > 2 {
				keywords[clean] = struct{}{}
			}
		}

		speciesClean := make([]string, 0, len(o.Species))
		for _, sp := range o.Species {
			clean := NormalizeForFilter(sp)
			speciesClean = append(speciesClean, clean)
			addKeyword(keywords, clean)
		}

		metadata := map[string]any{
			embedding.MetaTitle:          truncate(o.Title, 200),
			"valid_until":                o.DateTo,
			"enterprise_title":           o.SupplierTitle,
			"description":                truncate(o.Description, 300),
			embedding.MetaFilterLab:      labClean,
			embedding.MetaSearchKeywords: strings.Join(sortedKeywords(keywords), " "),
			embedding.MetaSpeciesFilter:  strings.Join(speciesClean, " "),
			"tags":                       tags,
			embedding.MetaIsOffer:        true,
		}
		if parsed.WeightRange != "" {
			metadata["weight_range"] = parsed.WeightRange
		}
		if parsed.Presentation != "" {
			metadata["presentation"] = parsed.Presentation
		}

		drafts = append(drafts, Draft{
			EntityType:  EntityOffer,
			EntityID:    o.ID,
			ContentText: OfferText(o),
			Metadata:    metadata,
		})
	}
	return drafts
}

// TransformCompanies builds drafts for suppliers.
func TransformCompanies(companies []Company) []Draft {
	drafts := make([]Draft, 0, len(companies))
	for _, c := range companies {
		drafts = append(drafts, Draft{
			EntityType:  EntityCompany,
			EntityID:    c.ID,
			ContentText: CompanyText(c),
			Metadata: map[string]any{
				embedding.MetaTitle:     truncate(c.Title, 200),
				"email":                 truncate(c.Email, 100),
				"description":           truncate(c.Description, 300),
				embedding.MetaFilterLab: NormalizeForFilter(c.Title),
			},
		})
	}
	return drafts
}

func addKeyword(set map[string]struct{}, keyword string) {
	if keyword != "" {
		set[keyword] = struct{}{}
	}
}

// Validate checks a draft before embedding.
func (d Draft) Validate() error {
	if d.EntityType == "" || d.EntityID == 0 {
		return fmt.Errorf("draft missing entity identity")
	}
	if strings.TrimSpace(d.ContentText) == "" {
		return fmt.Errorf("draft %s/%d has empty content text", d.EntityType, d.EntityID)
	}
	return nil
}
