package dataset

// ImageRef is a record's image reference. Datasets store either one filename
// or an ordered list of filenames under the "image" key; the shape is decided
// here, once, instead of being re-sniffed by every consumer.
type ImageRef struct {
	Names []string
	List  bool
}

// Count is the number of images the record declares. A single filename counts
// as one image regardless of its length.
func (r ImageRef) Count() int {
	return len(r.Names)
}

// ImageRefOf reads the "image" field of a record. The second return value is
// false when the record has no usable image reference.
func ImageRefOf(record Document) (ImageRef, bool) {
	switch v := record["image"].(type) {
	case string:
		return ImageRef{Names: []string{v}}, true
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return ImageRef{}, false
			}
			names = append(names, name)
		}
		return ImageRef{Names: names, List: true}, true
	default:
		return ImageRef{}, false
	}
}

// CollectImageNames gathers the distinct image filenames referenced by a
// record list, handling both single-name and list-of-names shapes.
func CollectImageNames(records []any) map[string]struct{} {
	referenced := make(map[string]struct{})
	for _, entry := range records {
		record, ok := entry.(Document)
		if !ok {
			continue
		}
		ref, ok := ImageRefOf(record)
		if !ok {
			continue
		}
		for _, name := range ref.Names {
			referenced[name] = struct{}{}
		}
	}
	return referenced
}
