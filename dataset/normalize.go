package dataset

// NormalizeValue recursively converts serialized JSON strings back into
// structured values. A string that parses as JSON is replaced by the parsed
// result; a string that does not parse is returned unchanged, which is the
// contract rather than an error path. Lists are processed element-wise and
// every other type passes through as-is.
func NormalizeValue(value any) any {
	switch v := value.(type) {
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			return parsed
		}
		return v
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = NormalizeValue(item)
		}
		return out
	default:
		return value
	}
}

// Normalize applies NormalizeValue to the "value" field of every conversation
// turn. Records without a conversations list, non-record entries and every
// other field are carried over untouched. A single-document collection is
// normalized as one value, matching the loader's shape decision.
func Normalize(c *Collection) *Collection {
	if !c.IsList {
		return &Collection{Single: NormalizeValue(c.Single)}
	}

	records := make([]any, 0, len(c.Records))
	for _, entry := range c.Records {
		record, ok := entry.(Document)
		if !ok {
			records = append(records, entry)
			continue
		}
		conversations, ok := record["conversations"].([]any)
		if !ok {
			records = append(records, entry)
			continue
		}

		normalized := make([]any, 0, len(conversations))
		for _, turn := range conversations {
			turnDoc, ok := turn.(Document)
			if !ok {
				normalized = append(normalized, turn)
				continue
			}
			next := make(Document, len(turnDoc))
			for k, v := range turnDoc {
				next[k] = v
			}
			next["value"] = NormalizeValue(turnDoc["value"])
			normalized = append(normalized, next)
		}

		out := make(Document, len(record))
		for k, v := range record {
			out[k] = v
		}
		out["conversations"] = normalized
		records = append(records, out)
	}
	return &Collection{Records: records, IsList: true}
}
