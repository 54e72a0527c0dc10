package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultsAreValid(t *testing.T) {
	cfg := DefaultConfig()
	for _, entry := range cfg.All() {
		assert.True(t, validConfigValue(entry.Key, entry.Value))
	}
}

func TestConfig_With_RejectsUnknownKey(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.With(ConfigKey("not_a_real_key"), 1)
	require.Error(t, err)
}

func TestConfig_With_RejectsOutOfRangeValue(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.With(ConfigWorkers, 0)
	require.Error(t, err)
}

func TestConfig_With_ReturnsUpdatedCopyLeavingOriginalUntouched(t *testing.T) {
	cfg := DefaultConfig()
	updated, err := cfg.With(ConfigWorkers, 8)
	require.NoError(t, err)

	orig, ok := cfg.Get(ConfigWorkers)
	require.True(t, ok)
	assert.NotEqual(t, int64(8), orig)

	got, ok := updated.Get(ConfigWorkers)
	require.True(t, ok)
	assert.Equal(t, int64(8), got)
}

func TestParseConfigKey(t *testing.T) {
	_, ok := ParseConfigKey("workers")
	assert.True(t, ok)

	_, ok = ParseConfigKey("does_not_exist")
	assert.False(t, ok)
}
