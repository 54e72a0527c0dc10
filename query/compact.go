package query

import "github.com/chivay/ursadb/store"

// SmartCompactThreshold is the default size, in bytes, below which a dataset is
// considered worth merging by a smart Compact. It mirrors the role of
// TieredMergePolicy's segment-size floor one layer down in the index package,
// applied here at dataset granularity.
const SmartCompactThreshold = 64 << 20

// SmartCompactCandidates returns the datasets a "smart" Compact would merge:
// every untainted dataset smaller than threshold. Tainted datasets are excluded
// since a taint (e.g. "stale") usually means a Reindex should run first.
func SmartCompactCandidates(snap *store.Snapshot, threshold int64) []string {
	var ids []string
	for _, ds := range snap.Datasets {
		if len(ds.Taints) == 0 && ds.Size() < threshold {
			ids = append(ids, ds.ID)
		}
	}
	return ids
}

// FullCompactCandidates returns every untainted dataset in the Snapshot,
// regardless of size.
func FullCompactCandidates(snap *store.Snapshot) []string {
	var ids []string
	for _, ds := range snap.Datasets {
		if len(ds.Taints) == 0 {
			ids = append(ids, ds.ID)
		}
	}
	return ids
}

// CompactCandidates dispatches to Smart or Full candidates per the command's mode.
func CompactCandidates(cmd *CompactCommand, snap *store.Snapshot) []string {
	if cmd.Mode == CompactFull {
		return FullCompactCandidates(snap)
	}
	threshold := int64(SmartCompactThreshold)
	if v, ok := snap.Config.Get(store.ConfigSmartCompactSize); ok {
		threshold = v
	}
	return SmartCompactCandidates(snap, threshold)
}
