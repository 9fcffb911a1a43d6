package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRefOf(t *testing.T) {
	ref, ok := ImageRefOf(Document{"image": "front.jpg"})
	require.True(t, ok)
	assert.False(t, ref.List)
	assert.Equal(t, []string{"front.jpg"}, ref.Names)
	assert.Equal(t, 1, ref.Count())

	ref, ok = ImageRefOf(Document{"image": []any{"front.jpg", "back.jpg"}})
	require.True(t, ok)
	assert.True(t, ref.List)
	assert.Equal(t, []string{"front.jpg", "back.jpg"}, ref.Names)
	assert.Equal(t, 2, ref.Count())

	_, ok = ImageRefOf(Document{"id": "no image"})
	assert.False(t, ok)

	_, ok = ImageRefOf(Document{"image": []any{"front.jpg", float64(2)}})
	assert.False(t, ok)
}

func TestCollectImageNames(t *testing.T) {
	records := []any{
		Document{"id": "a", "image": "shared.jpg"},
		Document{"id": "b", "image": []any{"shared.jpg", "extra.jpg"}},
		Document{"id": "c"},
		"not a record",
	}

	names := CollectImageNames(records)
	assert.Equal(t, map[string]struct{}{"shared.jpg": {}, "extra.jpg": {}}, names)
}
