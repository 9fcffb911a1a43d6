package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultSeed is the shuffle seed used when the caller does not supply one.
const DefaultSeed = 42

// Percentages are the train/val/test proportions of a split, in percent.
type Percentages struct {
	Train float64
	Val   float64
	Test  float64
}

// Validate rejects percentages outside [0, 100] and triples that do not sum
// to 100 within a small floating-point tolerance. The range check keeps the
// partition sizes within the record count.
func (p Percentages) Validate() error {
	for _, pct := range []float64{p.Train, p.Val, p.Test} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("percentages must be between 0 and 100, got %.2f", pct)
		}
	}
	if math.Abs(p.Train+p.Val+p.Test-100.0) > 0.001 {
		return fmt.Errorf("percentages must sum to 100, got %.2f", p.Train+p.Val+p.Test)
	}
	return nil
}

// Filter keeps the records whose "checked" and "use_in_training" fields are
// both truthy and projects each to a clean {id, image, conversations} record.
func Filter(records []any) []Document {
	filtered := make([]Document, 0, len(records))
	for _, entry := range records {
		record, ok := entry.(Document)
		if !ok {
			continue
		}
		if !truthy(record["checked"]) || !truthy(record["use_in_training"]) {
			continue
		}
		filtered = append(filtered, Clean(record))
	}
	return filtered
}

// Clean projects a record to exactly {id, image, conversations}.
func Clean(record Document) Document {
	return Document{
		"id":            record["id"],
		"image":         record["image"],
		"conversations": record["conversations"],
	}
}

// Split shuffles records with the given seed and slices them into three
// contiguous partitions. The first two sizes are the floor of pct*total; the
// third partition absorbs the rounding remainder, so the sizes always sum to
// the total. The same seed yields the same partitions on every run.
func Split(records []Document, p Percentages, seed int64) (train, val, test []Document, err error) {
	if err := p.Validate(); err != nil {
		return nil, nil, nil, err
	}

	shuffled := make([]Document, len(records))
	copy(shuffled, records)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	total := len(shuffled)
	trainSize := int(float64(total) * p.Train / 100)
	valSize := int(float64(total) * p.Val / 100)

	train = shuffled[:trainSize]
	val = shuffled[trainSize : trainSize+valSize]
	test = shuffled[trainSize+valSize:]
	return train, val, test, nil
}

// truthy mirrors the loose boolean semantics of the source data: false, nil,
// zero, empty string and empty containers are false, everything else is true.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case Document:
		return len(v) > 0
	default:
		return true
	}
}
