package etl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TitleMetadata is the structured data parsed out of a product title like
// "APOQUEL 16 MG X 20 COMP.".
type TitleMetadata struct {
	DosageValue  float64
	DosageUnit   string
	WeightRange  string
	Quantity     int
	VolumeML     float64
	Presentation string
}

// presentationMap folds presentation abbreviations to canonical forms.
var presentationMap = map[string]string{
	"comp": "comprimidos", "comprimidos": "comprimidos", "cs": "comprimidos",
	"tab": "comprimidos", "tabletas": "comprimidos",
	"caps": "capsulas", "capsulas": "capsulas",
	"ml": "liquido", "cc": "liquido",
	"iny": "inyectable", "inyectable": "inyectable", "inj": "inyectable", "amp": "inyectable",
	"pipeta": "pipeta", "pipetas": "pipeta", "pip": "pipeta", "spot": "pipeta",
	"sachet": "sachet", "sobre": "sachet",
	"shampoo": "shampoo", "sh": "shampoo", "champu": "shampoo",
	"pomada": "pomada", "crema": "crema", "gel": "gel", "spray": "spray",
	"polvo": "polvo", "granulado": "granulado",
	"suspension": "suspension", "susp": "suspension",
	"solucion": "solucion", "sol": "solucion",
	"emulsion": "emulsion", "collar": "collar", "difusor": "difusor",
	"repuesto": "repuesto", "locion": "locion",
	"atomizador": "spray", "atom": "spray",
}

var (
	dosageMgRe   = regexp.MustCompile(`(\d+(?:[,\.]\d+)?)\s*MG`)
	dosageGRe    = regexp.MustCompile(`(\d+(?:[,\.]\d+)?)\s*G(?:\s|$)`)
	dosageUnitRe = regexp.MustCompile(`\d+(?:[,\.]\d+)?\s*(MG|MCG|UG|ML|CC|UI|GR|G)\b`)
	weightFullRe = regexp.MustCompile(`(?:DE\s*)?(\d+(?:[,\.]\d+)?)\s*A\s*(\d+(?:[,\.]\d+)?)\s*KG`)
	weightUpToRe = regexp.MustCompile(`H/?\s*(\d+(?:[,\.]\d+)?)\s*KG`)
	quantityRe   = regexp.MustCompile(`X\s*(\d+)`)
	volumeRe     = regexp.MustCompile(`(\d+(?:[,\.]\d+)?)\s*ML`)
)

// ParseTitleMetadata extracts dosage, weight range, quantity, volume, and
// presentation from a product title.
func ParseTitleMetadata(title string) TitleMetadata {
	if title == "" {
		return TitleMetadata{}
	}
	upper := strings.ToUpper(strings.TrimSpace(title))

	meta := TitleMetadata{
		DosageValue: parseDosageValue(upper),
		DosageUnit:  parseDosageUnit(upper),
		WeightRange: parseWeightRange(upper),
		Quantity:    parseQuantity(upper),
		VolumeML:    parseDecimal(volumeRe, upper),
	}
	meta.Presentation = parsePresentation(upper)
	return meta
}

func parseDecimal(re *regexp.Regexp, text string) float64 {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseDosageValue(title string) float64 {
	if v := parseDecimal(dosageMgRe, title); v > 0 {
		return v
	}
	return parseDecimal(dosageGRe, title)
}

func parseDosageUnit(title string) string {
	match := dosageUnitRe.FindStringSubmatch(title)
	if match == nil {
		return ""
	}
	return strings.ToLower(match[1])
}

func parseWeightRange(title string) string {
	if match := weightFullRe.FindStringSubmatch(title); match != nil {
		minW := strings.ReplaceAll(match[1], ",", ".")
		maxW := strings.ReplaceAll(match[2], ",", ".")
		return trimDecimal(minW) + "-" + trimDecimal(maxW)
	}
	if match := weightUpToRe.FindStringSubmatch(title); match != nil {
		return "0-" + trimDecimal(strings.ReplaceAll(match[1], ",", "."))
	}
	return ""
}

// trimDecimal drops leading zeros and a trailing ".0" so "02" and "2.0"
// both render as "2".
func trimDecimal(s string) string {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%g", v)
}

func parseQuantity(title string) int {
	match := quantityRe.FindStringSubmatch(title)
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return n
}

// presentationOrder fixes match priority: specific forms win over the
// volume units that appear in almost every title.
var presentationOrder = []string{
	"comprimidos", "comp", "cs", "tabletas", "tab",
	"capsulas", "caps",
	"inyectable", "inj", "iny", "amp",
	"pipetas", "pipeta", "pip", "spot",
	"sachet", "sobre",
	"shampoo", "champu", "sh",
	"pomada", "crema", "gel", "spray", "atomizador", "atom",
	"polvo", "granulado",
	"suspension", "susp", "solucion", "sol", "emulsion",
	"collar", "difusor", "repuesto", "locion",
	"ml", "cc",
}

func parsePresentation(title string) string {
	lower := strings.ToLower(title)
	for _, abbrev := range presentationOrder {
		re := regexp.MustCompile(`\b` + abbrev + `\.?\b`)
		if re.MatchString(lower) {
			return presentationMap[abbrev]
		}
	}
	return ""
}
