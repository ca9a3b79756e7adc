package etl

// Product is a row from the products source, enriched in place with
// company, category, and clinical compendium data before transformation.
type Product struct {
	ID                 int64
	Title              string
	Description        string
	ActiveIngredient   string
	TherapeuticAction  string
	EnterpriseID       string
	EnterpriseTitle    string
	CategoryID         string
	CategoryName       string
	Species            []string
	MedicalIndications string
	Contraindications  string
	ClinicalDosage     string
}

// Offer is a row from the offers source. Product fields are copied over
// from the linked product during enrichment.
type Offer struct {
	ID                int64
	Title             string
	Description       string
	DateFrom          string
	DateTo            string
	SupplierID        string
	SupplierTitle     string
	ProductName       string
	ActiveIngredient  string
	TherapeuticAction string
	CategoryName      string
	Species           []string
}

// Company is a supplier row.
type Company struct {
	ID          int64
	Title       string
	Email       string
	Description string
	TypeID      int
}

// Category is a product category row.
type Category struct {
	ID    string
	Title string
}

// OfferProduct links an offer to the product it covers.
type OfferProduct struct {
	OfferID   string
	ProductID string
}

// CompendiumEntry is a row from the clinical compendium source, joined to
// products by normalized name.
type CompendiumEntry struct {
	Product           string
	Species           []string
	Symptoms          string
	Diagnosis         string
	TherapeuticAction string
	Contraindications string
	Usage             string
	Dosage            string
}
