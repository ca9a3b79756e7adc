package etl

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

var discardLogger = slog.New(slog.DiscardHandler)

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "5", normalizeID("5"))
	assert.Equal(t, "5", normalizeID("5.0"))
	assert.Equal(t, "5", normalizeID(" 5 "))
	assert.Equal(t, "", normalizeID(""))
	assert.Equal(t, "abc", normalizeID("abc"))
}

func TestEnrichWithCompanies(t *testing.T) {
	products := []Product{
		{ID: 1, Title: "A", EnterpriseID: "10"},
		{ID: 2, Title: "B", EnterpriseID: "99"},
	}
	offers := []Offer{
		{ID: 1, SupplierID: "10.0"},
		{ID: 2, SupplierID: "10", SupplierTitle: "Ya Puesto"},
	}
	companies := []Company{{ID: 10, Title: "Zoetis"}}

	productCount, offerCount := EnrichWithCompanies(products, offers, companies, discardLogger)

	assert.Equal(t, 1, productCount)
	assert.Equal(t, 1, offerCount)
	assert.Equal(t, "Zoetis", products[0].EnterpriseTitle)
	assert.Empty(t, products[1].EnterpriseTitle)
	assert.Equal(t, "Zoetis", offers[0].SupplierTitle)
	// pre-set supplier names are not overwritten
	assert.Equal(t, "Ya Puesto", offers[1].SupplierTitle)
}

func TestEnrichWithCategories(t *testing.T) {
	products := []Product{{ID: 1, CategoryID: "3.0"}, {ID: 2, CategoryID: "8"}}
	categories := []Category{{ID: "3", Title: "Antibioticos"}}

	count := EnrichWithCategories(products, categories, discardLogger)

	assert.Equal(t, 1, count)
	assert.Equal(t, "Antibioticos", products[0].CategoryName)
	assert.Empty(t, products[1].CategoryName)
}

func TestEnrichWithCompendium(t *testing.T) {
	products := []Product{
		{ID: 1, Title: "Amoxicilina 500MG"},
		{ID: 2, Title: "Sin Match"},
	}
	entries := []CompendiumEntry{{
		Product:           "AMOXICILINA 500 mg",
		Species:           []string{"perro", "gato"},
		Symptoms:          "tos fiebre",
		Diagnosis:         "infeccion respiratoria",
		TherapeuticAction: "antibiotico",
		Usage:             "oral",
		Dosage:            "10 mg/kg cada 12 h",
	}}

	count := EnrichWithCompendium(products, entries, discardLogger)

	assert.Equal(t, 1, count)
	p := products[0]
	assert.Equal(t, []string{"perro", "gato"}, p.Species)
	assert.Equal(t, "tos fiebre infeccion respiratoria", p.MedicalIndications)
	assert.Equal(t, "antibiotico", p.TherapeuticAction)
	assert.Equal(t, "oral. 10 mg/kg cada 12 h", p.ClinicalDosage)
	assert.Empty(t, products[1].MedicalIndications)
}

func TestEnrichOffersWithProducts(t *testing.T) {
	offers := []Offer{
		{ID: 5, Title: "2x1 Amoxi"},
		{ID: 6, Title: "Sin Link"},
	}
	products := []Product{{
		ID:               1,
		Title:            "Amoxicilina 500mg",
		ActiveIngredient: "Amoxicilina",
		EnterpriseTitle:  "Zoetis",
		Species:          []string{"perro"},
	}}
	links := []OfferProduct{{OfferID: "5", ProductID: "1.0"}}

	count := EnrichOffersWithProducts(offers, products, links, discardLogger)

	assert.Equal(t, 1, count)
	o := offers[0]
	assert.Equal(t, "Amoxicilina 500mg", o.ProductName)
	assert.Equal(t, "Amoxicilina", o.ActiveIngredient)
	assert.Equal(t, "Zoetis", o.SupplierTitle)
	assert.Equal(t, []string{"perro"}, o.Species)
	assert.Empty(t, offers[1].ProductName)
}
