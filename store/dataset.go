package store

// Index is one on-disk index built for a Dataset, e.g. a trigram postings list.
type Index struct {
	Type string
	Size int64
}

// Dataset is an immutable logical unit identified by a stable ID: a corpus of files
// together with the indexes built over them. Datasets are never mutated in place;
// operations that change a dataset (Reindex, Compact, Taint) build a new *Dataset
// value and the Database swaps it in at commit time.
type Dataset struct {
	ID       string
	NumFiles int
	Taints   map[string]bool
	Indexes  []Index
}

// NewDataset creates an untainted dataset with the given indexes.
func NewDataset(id string, numFiles int, indexes []Index) *Dataset {
	return &Dataset{ID: id, NumFiles: numFiles, Taints: make(map[string]bool), Indexes: indexes}
}

// Size returns the sum of the Size values of the dataset's indexes.
func (d *Dataset) Size() int64 {
	var total int64
	for _, idx := range d.Indexes {
		total += idx.Size
	}
	return total
}

// HasTaint reports whether tag is currently set on the dataset.
func (d *Dataset) HasTaint(tag string) bool {
	return d.Taints[tag]
}

// Clone returns a deep copy safe to mutate independently of d.
func (d *Dataset) Clone() *Dataset {
	taints := make(map[string]bool, len(d.Taints))
	for k, v := range d.Taints {
		taints[k] = v
	}
	indexes := make([]Index, len(d.Indexes))
	copy(indexes, d.Indexes)
	return &Dataset{ID: d.ID, NumFiles: d.NumFiles, Taints: taints, Indexes: indexes}
}

// WithTaint returns a copy of d with tag added or removed, and whether the taint set
// actually changed (callers use this to implement Taint's no-op-on-repeat contract).
func (d *Dataset) WithTaint(tag string, add bool) (*Dataset, bool) {
	if d.HasTaint(tag) == add {
		return d, false
	}
	d2 := d.Clone()
	if add {
		d2.Taints[tag] = true
	} else {
		delete(d2.Taints, tag)
	}
	return d2, true
}
