package store

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// ConfigKey is a validated, known configuration name. Unknown names fail to parse.
type ConfigKey string

const (
	ConfigWorkers          ConfigKey = "workers"
	ConfigSelectTimeoutMs  ConfigKey = "select_timeout_ms"
	ConfigMaxSegmentSize   ConfigKey = "max_segment_size"
	ConfigSmartCompactSize ConfigKey = "smart_compact_size"
)

type configSpec struct {
	def, min, max int64
}

var configSpecs = map[ConfigKey]configSpec{
	ConfigWorkers:          {def: 4, min: 1, max: 256},
	ConfigSelectTimeoutMs:  {def: 30000, min: 0, max: 3600000},
	ConfigMaxSegmentSize:   {def: 2 << 30, min: 1 << 20, max: 1 << 40},
	ConfigSmartCompactSize: {def: 64 << 20, min: 1 << 10, max: 1 << 40},
}

// ParseConfigKey resolves a key name typed by a client into a known ConfigKey.
func ParseConfigKey(name string) (ConfigKey, bool) {
	key := ConfigKey(name)
	_, ok := configSpecs[key]
	return key, ok
}

func validConfigValue(key ConfigKey, value int64) bool {
	spec, ok := configSpecs[key]
	if !ok {
		return false
	}
	return value >= spec.min && value <= spec.max
}

// Config is the effective, versioned set of known configuration values. It is
// immutable once observed by a Snapshot: ConfigSet produces a new Config via With.
type Config struct {
	values map[ConfigKey]int64
}

// DefaultConfig returns a Config with every known key set to its default value.
func DefaultConfig() Config {
	values := make(map[ConfigKey]int64, len(configSpecs))
	for key, spec := range configSpecs {
		values[key] = spec.def
	}
	return Config{values: values}
}

// Get returns the value of a known key. ok is false only if key is unknown, which
// cannot happen for a Config built via DefaultConfig/With since those only ever
// carry keys validated by ParseConfigKey.
func (c Config) Get(key ConfigKey) (int64, bool) {
	v, ok := c.values[key]
	return v, ok
}

// All returns every key/value pair, sorted by key for stable display.
func (c Config) All() []ConfigEntry {
	entries := make([]ConfigEntry, 0, len(c.values))
	for k, v := range c.values {
		entries = append(entries, ConfigEntry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// ConfigEntry is one key/value pair as returned by ConfigGet.
type ConfigEntry struct {
	Key   ConfigKey
	Value int64
}

// With returns a copy of c with key set to value. It rejects unknown keys and
// out-of-range values; ConfigSet surfaces this as a ClientError.
func (c Config) With(key ConfigKey, value int64) (Config, error) {
	if !validConfigValue(key, value) {
		return c, errors.Errorf("invalid value %d for config key %q", value, key)
	}
	values := make(map[ConfigKey]int64, len(c.values))
	for k, v := range c.values {
		values[k] = v
	}
	values[key] = value
	return Config{values: values}, nil
}

func FormatConfigValue(v int64) string {
	return strconv.FormatInt(v, 10)
}
