package dataset

import (
	"sort"

	"golang.org/x/exp/maps"
)

// IDSet collects the string identifiers of a record list.
func IDSet(records []any) map[string]struct{} {
	ids := make(map[string]struct{}, len(records))
	for _, entry := range records {
		record, ok := entry.(Document)
		if !ok {
			continue
		}
		if id, ok := record["id"].(string); ok {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// ExtractByID pulls from records every record whose id appears in ids,
// projected to {id, image, conversations}, preserving the input order.
// The second return value lists the ids that were not found, sorted; an
// absent id is reported, not an error.
func ExtractByID(records []any, ids map[string]struct{}) ([]Document, []string) {
	matched := make([]Document, 0, len(ids))
	found := make(map[string]struct{}, len(ids))

	for _, entry := range records {
		record, ok := entry.(Document)
		if !ok {
			continue
		}
		id, ok := record["id"].(string)
		if !ok {
			continue
		}
		if _, want := ids[id]; !want {
			continue
		}
		matched = append(matched, Clean(record))
		found[id] = struct{}{}
	}

	missingSet := make(map[string]struct{}, len(ids))
	for id := range ids {
		if _, ok := found[id]; !ok {
			missingSet[id] = struct{}{}
		}
	}
	missing := maps.Keys(missingSet)
	sort.Strings(missing)
	return matched, missing
}
