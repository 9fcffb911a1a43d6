package dataset

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentagesValidate(t *testing.T) {
	assert.NoError(t, Percentages{Train: 85, Val: 0, Test: 15}.Validate())
	assert.NoError(t, Percentages{Train: 33.3, Val: 33.3, Test: 33.4}.Validate())
	assert.Error(t, Percentages{Train: 85, Val: 0, Test: 14.9}.Validate())
	assert.Error(t, Percentages{Train: 50, Val: 25, Test: 24.9}.Validate())
}

func TestFilterKeepsCheckedTrainingRecords(t *testing.T) {
	records := []any{
		Document{"id": "keep-1", "image": "a.jpg", "conversations": []any{}, "checked": true, "use_in_training": true, "note": "dropped"},
		Document{"id": "skip-unchecked", "image": "b.jpg", "conversations": []any{}, "checked": false, "use_in_training": true},
		Document{"id": "skip-unset", "image": "c.jpg", "conversations": []any{}},
		Document{"id": "keep-2", "image": "d.jpg", "conversations": []any{}, "checked": true, "use_in_training": true},
		"not a record",
	}

	filtered := Filter(records)
	require.Len(t, filtered, 2)

	for _, record := range filtered {
		assert.Len(t, record, 3)
		assert.Contains(t, record, "id")
		assert.Contains(t, record, "image")
		assert.Contains(t, record, "conversations")
	}
	assert.Equal(t, "keep-1", filtered[0]["id"])
	assert.Equal(t, "keep-2", filtered[1]["id"])
}

func makeRecords(n int) []Document {
	records := make([]Document, n)
	for i := range records {
		records[i] = Document{"id": fmt.Sprintf("rec-%d", i), "image": "a.jpg", "conversations": []any{}}
	}
	return records
}

func TestSplitSizes(t *testing.T) {
	for _, tc := range []struct {
		total              int
		p                  Percentages
		wantTrain, wantVal int
		wantTest           int
	}{
		{10, Percentages{Train: 70, Val: 20, Test: 10}, 7, 2, 1},
		{7, Percentages{Train: 50, Val: 25, Test: 25}, 3, 1, 3},
		{3, Percentages{Train: 100, Val: 0, Test: 0}, 3, 0, 0},
		{1, Percentages{Train: 50, Val: 25, Test: 25}, 0, 0, 1},
	} {
		train, val, test, err := Split(makeRecords(tc.total), tc.p, DefaultSeed)
		require.NoError(t, err)
		assert.Len(t, train, tc.wantTrain)
		assert.Len(t, val, tc.wantVal)
		assert.Len(t, test, tc.wantTest)
		assert.Equal(t, tc.total, len(train)+len(val)+len(test))
	}
}

func TestSplitRejectsBadPercentages(t *testing.T) {
	_, _, _, err := Split(makeRecords(10), Percentages{Train: 85, Val: 0, Test: 14.9}, DefaultSeed)
	assert.Error(t, err)
}

func TestSplitRejectsOutOfRangePercentages(t *testing.T) {
	// sums to 100, but a negative share would slice past the record count
	assert.Error(t, Percentages{Train: 200, Val: -100, Test: 0}.Validate())
	assert.Error(t, Percentages{Train: 150, Val: 0, Test: -50}.Validate())
	assert.Error(t, Percentages{Train: -10, Val: 55, Test: 55}.Validate())

	assert.NotPanics(t, func() {
		_, _, _, err := Split(makeRecords(5), Percentages{Train: 200, Val: -100, Test: 0}, DefaultSeed)
		assert.Error(t, err)
	})
}

func TestSplitIsDeterministic(t *testing.T) {
	p := Percentages{Train: 60, Val: 20, Test: 20}

	train1, val1, test1, err := Split(makeRecords(20), p, 7)
	require.NoError(t, err)
	train2, val2, test2, err := Split(makeRecords(20), p, 7)
	require.NoError(t, err)

	assert.Equal(t, train1, train2)
	assert.Equal(t, val1, val2)
	assert.Equal(t, test1, test2)

	bytes1, err := EncodeRecords(train1)
	require.NoError(t, err)
	bytes2, err := EncodeRecords(train2)
	require.NoError(t, err)
	assert.Equal(t, bytes1, bytes2)
}

func TestSplitDoesNotMutateInput(t *testing.T) {
	records := makeRecords(10)
	ids := make([]string, len(records))
	for i, record := range records {
		ids[i] = record["id"].(string)
	}

	_, _, _, err := Split(records, Percentages{Train: 50, Val: 25, Test: 25}, 3)
	require.NoError(t, err)

	for i, record := range records {
		assert.Equal(t, ids[i], record["id"])
	}
}

func TestFilterAndSplitEndToEnd(t *testing.T) {
	collection, err := Decode([]byte(`[
		{"id": "a", "image": "a.jpg", "conversations": [], "checked": true, "use_in_training": true},
		{"id": "b", "image": "b.jpg", "conversations": [], "checked": true, "use_in_training": true},
		{"id": "c", "image": "c.jpg", "conversations": [], "checked": false, "use_in_training": true}
	]`))
	require.NoError(t, err)

	filtered := Filter(collection.Records)
	require.Len(t, filtered, 2)

	train, val, test, err := Split(filtered, Percentages{Train: 100, Val: 0, Test: 0}, DefaultSeed)
	require.NoError(t, err)
	assert.Len(t, train, 2)
	assert.Empty(t, val)
	assert.Empty(t, test)

	for _, record := range train {
		assert.Len(t, record, 3)
		assert.NotEqual(t, "c", record["id"])
	}

	empty, err := EncodeRecords(val)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
