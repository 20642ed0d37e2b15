package utils

import (
	"sort"
	"strings"
)

// tagAliases maps free-text labels to the tag vocabulary shared by catalog
// listings and search criteria
var tagAliases = map[string]string{
	// amenities
	"pool":               "pool",
	"swimming pool":      "pool",
	"gym":                "gym",
	"gymnasium":          "gym",
	"fitness":            "gym",
	"fitness center":     "gym",
	"fitness centre":     "gym",
	"aircon":             "air_conditioning",
	"air conditioner":    "air_conditioning",
	"air conditioning":   "air_conditioning",
	"a/c":                "air_conditioning",
	"ac":                 "air_conditioning",
	"washer":             "in_unit_laundry",
	"washing machine":    "in_unit_laundry",
	"washer/dryer":       "in_unit_laundry",
	"in-unit laundry":    "in_unit_laundry",
	"dishwasher":         "dishwasher",
	"balcony":            "balcony",
	"terrace":            "balcony",
	"fridge":             "refrigerator",
	"refrigerator":       "refrigerator",
	"doorman":            "doorman",
	"concierge":          "doorman",
	"elevator":           "elevator",
	"lift":               "elevator",
	"24-hour security":   "security",
	"24hr security":      "security",
	"security":           "security",
	"bbq":                "bbq",
	"barbecue":           "bbq",
	"bbq pits":           "bbq",
	"hardwood":           "hardwood_floors",
	"hardwood floors":    "hardwood_floors",
	// parking
	"garage":             "garage",
	"attached garage":    "garage",
	"covered parking":    "covered",
	"car park":           "lot",
	"parking lot":        "lot",
	"street parking":     "street",
	"on-street parking":  "street",
	"driveway":           "driveway",
	// utilities
	"water included":     "water",
	"electricity":        "electric",
	"electric included":  "electric",
	"gas included":       "gas",
	"internet":           "internet",
	"wifi":               "internet",
	"wi-fi":              "internet",
	"trash":              "trash",
	"garbage":            "trash",
	// accessibility
	"wheelchair access":  "wheelchair_accessible",
	"wheelchair":         "wheelchair_accessible",
	"step-free access":   "step_free",
	"step free":          "step_free",
	"ground floor":       "ground_floor",
	"grab bars":          "grab_bars",
	"elevator access":    "elevator",
}

// CanonicalTag maps a label to its canonical tag. Unknown labels are
// lower-cased with spaces and dashes folded to underscores.
func CanonicalTag(label string) string {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return ""
	}

	if tag, ok := tagAliases[lower]; ok {
		return tag
	}

	return strings.Join(strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

// CanonicalTags canonicalises, dedupes and sorts a set of labels. Empty
// input or input with only blank labels yields nil.
func CanonicalTags(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(labels))
	tags := make([]string, 0, len(labels))
	for _, l := range labels {
		tag := CanonicalTag(l)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil
	}
	sort.Strings(tags)
	return tags
}
