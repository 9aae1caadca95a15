package catalog

import (
	"encoding/json"
	"fmt"
)

// Validate inspects well-known sections and returns human-readable
// warnings for operators. Warnings are advisory only: a publish
// proceeds regardless of what this function returns, since many
// publishes intentionally touch only theming or config sections.
func Validate(sections map[string]json.RawMessage) []string {
	var warnings []string

	warnings = append(warnings, validateProducts(sections["products"])...)

	if isNullSection(sections["categories"]) {
		warnings = append(warnings, "no categories section: storefront navigation may be empty")
	}

	return warnings
}

// validateProducts checks each product record for the fields the
// storefront cannot render without.
func validateProducts(raw json.RawMessage) []string {
	if isNullSection(raw) {
		return []string{"no products section: storefront catalog will be empty"}
	}

	records, err := sectionRecords(raw)
	if err != nil {
		return []string{fmt.Sprintf("products section is not a record collection: %v", err)}
	}

	var warnings []string
	for id, record := range records {
		if isNullSection(record["name"]) {
			warnings = append(warnings, fmt.Sprintf("product %s has no name", id))
		}
		if isNullSection(record["price"]) {
			warnings = append(warnings, fmt.Sprintf("product %s has no price", id))
		}
	}

	return warnings
}

// sectionRecords decodes a section shaped either as an id-to-record map
// or as a plain record array. Array entries are keyed by index.
func sectionRecords(raw json.RawMessage) (map[string]map[string]json.RawMessage, error) {
	var byID map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err == nil {
		return byID, nil
	}

	var list []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}

	byID = make(map[string]map[string]json.RawMessage, len(list))
	for i, record := range list {
		byID[fmt.Sprintf("#%d", i)] = record
	}
	return byID, nil
}

// isNullSection treats absent, empty, and literal-null values alike.
func isNullSection(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// SectionCount returns the number of entries in a map- or array-shaped
// section, or 0 when the section is null or neither. Used for publish
// result stats, never for gating.
func SectionCount(raw json.RawMessage) int {
	if isNullSection(raw) {
		return 0
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err == nil {
		return len(entries)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return len(list)
	}
	return 0
}
