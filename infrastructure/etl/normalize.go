// Package etl extracts product data from CSV sources or the production
// REST API, enriches and transforms it into embedding records.
package etl

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentFolder strips combining marks so "dosificación" folds to
// "dosificacion" before matching or filtering.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]`)
	wordRe       = regexp.MustCompile(`\b[a-z0-9]+\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	unitSuffixRe = regexp.MustCompile(`(\b|\d)(mg|ml|kg|gr|g|cm|comp|comprimidos)\b`)
	leadZeroRe   = regexp.MustCompile(`\b0+(\d)`)
)

// FoldAccents removes diacritics and lowercases the text.
func FoldAccents(text string) string {
	folded, _, err := transform.String(accentFolder, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// NormalizeForFilter reduces text to a bare lowercase alphanumeric token
// used for exact-match filter fields (labs, categories, drugs).
func NormalizeForFilter(text string) string {
	if text == "" {
		return ""
	}
	return nonAlnumRe.ReplaceAllString(FoldAccents(text), "")
}

// NormalizeForMatch reduces a product name to a matching key for joining
// against the clinical compendium: accents folded, measurement units
// dropped even when glued to the number ("500MG"), non-alphanumerics
// removed.
func NormalizeForMatch(text string) string {
	if text == "" {
		return ""
	}
	clean := FoldAccents(text)
	clean = unitSuffixRe.ReplaceAllString(clean, "$1")
	return nonAlnumRe.ReplaceAllString(clean, "")
}

// CollapseSpaces squeezes runs of whitespace to single spaces and trims.
func CollapseSpaces(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// medicalShortTerms are clinically meaningful words too short for the
// generic keyword length cutoff.
var medicalShortTerms = map[string]struct{}{
	"tos": {}, "ojo": {}, "ojos": {}, "piel": {}, "pus": {},
	"una": {}, "unas": {}, "pie": {}, "pies": {},
}

// ClinicalKeywords extracts the set of clinical keywords from free text:
// accent-folded lowercase words longer than three characters, plus
// whitelisted short medical terms.
func ClinicalKeywords(text string) map[string]struct{} {
	keywords := map[string]struct{}{}
	if text == "" {
		return keywords
	}
	for _, word := range wordRe.FindAllString(FoldAccents(text), -1) {
		if len(word) > 3 {
			keywords[word] = struct{}{}
			continue
		}
		if _, ok := medicalShortTerms[word]; ok {
			keywords[word] = struct{}{}
		}
	}
	return keywords
}

// sortedKeywords returns the keyword set as a deterministic sorted slice.
func sortedKeywords(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// termExpansion rewrites an abbreviation to its expanded form.
type termExpansion struct {
	pattern     *regexp.Regexp
	replacement string
}

// termExpansions expand trade abbreviations and jargon found in product
// titles so the embedding text carries full words. Applied in order
// against the uppercased title.
var termExpansions = []termExpansion{
	{regexp.MustCompile(`\bSH\.`), "SHAMPOO "},
	{regexp.MustCompile(`\bSH\b`), "SHAMPOO "},
	{regexp.MustCompile(`\bCOMP\.`), "COMPRIMIDOS "},
	{regexp.MustCompile(`\bCOMP\b`), "COMPRIMIDOS "},
	{regexp.MustCompile(`\bCS\b`), "COMPRIMIDOS "},
	{regexp.MustCompile(`\bTABL\b`), "TABLETAS "},
	{regexp.MustCompile(`\bINY\.`), "INYECTABLE "},
	{regexp.MustCompile(`\bINY\b`), "INYECTABLE "},
	{regexp.MustCompile(`\bS\.I\.`), "SOLUCION INYECTABLE "},
	{regexp.MustCompile(`\bJGA\.`), "JERINGA "},
	{regexp.MustCompile(`\bFCO\.`), "FRASCO "},
	{regexp.MustCompile(`\bAMPO?\.`), "AMPOLLA "},
	{regexp.MustCompile(`\bSOL\.`), "SOLUCION "},
	{regexp.MustCompile(`\bUNG\.`), "UNGUENTO "},
	{regexp.MustCompile(`\bPOMO\b`), "CREMA "},
	{regexp.MustCompile(`\bSUSP\.`), "SUSPENSION "},
	{regexp.MustCompile(`\bGT\.`), "GOTAS "},
	{regexp.MustCompile(`\bGTS\.`), "GOTAS "},
	{regexp.MustCompile(`\bPIP\.`), "PIPETA "},
	{regexp.MustCompile(`\bAER\b`), "AEROSOL "},
	{regexp.MustCompile(`\bPOUR ON\b`), "TOPICO DORSAL "},
	{regexp.MustCompile(`\bVAC\.`), "VACUNA "},
	{regexp.MustCompile(`\bVANG\b`), "VACUNA VANGUARD "},
	{regexp.MustCompile(`\bFELOCELL\b`), "VACUNA FELOCELL "},
	{regexp.MustCompile(`\bDEFENSOR\b`), "VACUNA ANTIRRABICA DEFENSOR "},
	{regexp.MustCompile(`\bCANIGEN\b`), "VACUNA CANIGEN "},
	{regexp.MustCompile(`\bVETSCAN\b`), "EQUIPO DIAGNOSTICO VETSCAN "},
	{regexp.MustCompile(`\bROTOR\b`), "ROTOR ANALISIS "},
	{regexp.MustCompile(`\bREAGENT\b`), "REACTIVO "},
	{regexp.MustCompile(`H/(\d)`), "HASTA $1"},
	{regexp.MustCompile(`H-(\d)`), "HASTA $1"},
	{regexp.MustCompile(`\bC/`), "CON "},
	{regexp.MustCompile(`\bS/`), "SIN "},
	{regexp.MustCompile(`\bPEQ\.`), "PEQUEÑOS "},
	{regexp.MustCompile(`\bMED\.`), "MEDIANOS "},
	{regexp.MustCompile(`\bGDE\.`), "GRANDES "},
	{regexp.MustCompile(`\bGDE\b`), "GRANDES "},
	{regexp.MustCompile(`\bOSS\.`), "OSSPRET "},
	{regexp.MustCompile(`\bHOLL\b`), "HOLLIDAY "},
	{regexp.MustCompile(`\bJ\.?\s?MARTIN\b`), "JOHN MARTIN "},
	{regexp.MustCompile(`\bHOSP\.`), "HOSPITALARIO "},
	{regexp.MustCompile(`\bHOSP\b`), "HOSPITALARIO "},
	{regexp.MustCompile(`\bL\.A\.`), "LARGA ACCION "},
	{regexp.MustCompile(`\bCURABICH\b`), "ANTIMIASICO CICATRIZANTE "},
	{regexp.MustCompile(`\bANTIP\b`), "ANTIPARASITARIO "},
}

// ExpandTitle expands abbreviations and jargon in a product title.
func ExpandTitle(title string) string {
	text := strings.ToUpper(title)
	for _, exp := range termExpansions {
		text = exp.pattern.ReplaceAllString(text, exp.replacement)
	}
	text = leadZeroRe.ReplaceAllString(text, "$1")
	return CollapseSpaces(text)
}

// SpecialTags derives retrieval tags from an expanded title.
func SpecialTags(titleExpanded string) []string {
	var tags []string
	text := strings.ToUpper(titleExpanded)

	if strings.Contains(text, "HOSPITALARIO") {
		tags = append(tags, "hospitalario")
	}
	if strings.Contains(text, "VACUNA") || strings.Contains(text, "ANTIRRABICA") {
		tags = append(tags, "vacuna")
	}
	if strings.Contains(text, "DIAGNOSTICO") || strings.Contains(text, "REACTIVO") {
		tags = append(tags, "insumo_diagnostico")
	}
	if strings.Contains(text, "PEDIATRICO") || strings.Contains(text, "CACHORRO") || strings.Contains(text, "PUPPY") {
		tags = append(tags, "pediatrico")
	}
	if strings.Contains(text, "GERIATRICO") || strings.Contains(text, "SENIOR") {
		tags = append(tags, "geriatrico")
	}
	if strings.Contains(text, "TRAZABILIDAD") {
		tags = append(tags, "trazado")
	}

	return tags
}
