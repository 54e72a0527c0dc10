package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigChange_Apply(t *testing.T) {
	db := NewDatabase()
	change := &ConfigChange{Key: ConfigWorkers, Value: 16}
	require.NoError(t, change.Apply(db))

	got, ok := db.config.Get(ConfigWorkers)
	require.True(t, ok)
	assert.Equal(t, int64(16), got)
}

func TestConfigChange_Apply_RejectsInvalidValue(t *testing.T) {
	db := NewDatabase()
	change := &ConfigChange{Key: ConfigWorkers, Value: -1}
	assert.Error(t, change.Apply(db))
}

func TestReplaceDatasetChange_Apply_RequiresExistingDataset(t *testing.T) {
	db := NewDatabase()
	change := &ReplaceDatasetChange{Dataset: NewDataset("a", 1, nil)}
	assert.Error(t, change.Apply(db))
}

func TestAdvanceIteratorChange_Apply_DropsExhaustedIterator(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, (&NewIteratorChange{Iterator: NewIterator("it1", "d", "m", 2)}).Apply(db))

	require.NoError(t, (&AdvanceIteratorChange{IteratorID: "it1", N: 2}).Apply(db))

	_, ok := db.iterators["it1"]
	assert.False(t, ok)
}

func TestAdvanceIteratorChange_Apply_KeepsPartiallyConsumedIterator(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, (&NewIteratorChange{Iterator: NewIterator("it1", "d", "m", 5)}).Apply(db))

	require.NoError(t, (&AdvanceIteratorChange{IteratorID: "it1", N: 2}).Apply(db))

	it, ok := db.iterators["it1"]
	require.True(t, ok)
	assert.Equal(t, 3, it.Remaining())
}
