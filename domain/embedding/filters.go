package embedding

// Metadata keys recognised by hard filters. Producers populate these during
// transformation; stores match against them at query time.
const (
	MetaTitle          = "title"
	MetaLab            = "lab"
	MetaFilterLab      = "filter_lab"
	MetaFilterCategory = "filter_category"
	MetaSpeciesFilter  = "species_filter"
	MetaIsOffer        = "is_offer"
	MetaPrice          = "price"
	MetaDosageValue    = "dosage_value"
	MetaSearchKeywords = "search_keywords"
)

// Filters narrows similarity search by metadata attributes. All populated
// filters must match (AND semantics); values are expected pre-normalised
// (lowercase, accents folded).
type Filters struct {
	labs       []string
	categories []string
	species    []string
	offersOnly bool
}

// FiltersOption is a functional option for Filters.
type FiltersOption func(*Filters)

// NewFilters creates Filters from options.
func NewFilters(opts ...FiltersOption) Filters {
	f := Filters{}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// WithLabs restricts results to records whose filter_lab matches any of labs.
func WithLabs(labs []string) FiltersOption {
	return func(f *Filters) {
		f.labs = copyStrings(labs)
	}
}

// WithCategories restricts results to records whose filter_category matches
// any of categories.
func WithCategories(categories []string) FiltersOption {
	return func(f *Filters) {
		f.categories = copyStrings(categories)
	}
}

// WithSpecies restricts results to records whose species_filter contains any
// of the given species (substring match, singulars matched against plurals).
func WithSpecies(species []string) FiltersOption {
	return func(f *Filters) {
		f.species = copyStrings(species)
	}
}

// WithOffersOnly restricts results to records flagged is_offer.
func WithOffersOnly() FiltersOption {
	return func(f *Filters) {
		f.offersOnly = true
	}
}

// Labs returns the laboratory filter values.
func (f Filters) Labs() []string { return copyStrings(f.labs) }

// Categories returns the category filter values.
func (f Filters) Categories() []string { return copyStrings(f.categories) }

// Species returns the species filter values.
func (f Filters) Species() []string { return copyStrings(f.species) }

// OffersOnly reports whether results are limited to offers.
func (f Filters) OffersOnly() bool { return f.offersOnly }

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return len(f.labs) == 0 && len(f.categories) == 0 && len(f.species) == 0 && !f.offersOnly
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	cp := make([]string, len(s))
	copy(cp, s)
	return cp
}
