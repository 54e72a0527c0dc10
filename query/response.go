package query

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/chivay/ursadb/store"
)

// Response is a tagged variant over everything the Executor can return. Encode
// renders the textual wire form described by the Response grammar.
type Response interface {
	Encode() string
}

type OkResponse struct{}

func (OkResponse) Encode() string { return "ok" }

type ErrorResponse struct {
	Message string
}

func (r ErrorResponse) Encode() string { return fmt.Sprintf("error(%s)", r.Message) }

// SelectCounters reports how much work a Select touched, independent of how many
// hits it returned — used by both the inline and iterator-backed forms.
type SelectCounters struct {
	DatasetsQueried int
	FilesMatched    int
}

func (c SelectCounters) String() string {
	return fmt.Sprintf("datasets=%d,matched=%d", c.DatasetsQueried, c.FilesMatched)
}

type SelectResponse struct {
	Hits     []string
	Counters SelectCounters
}

func (r SelectResponse) Encode() string {
	return fmt.Sprintf("select(%s;%s)", strings.Join(r.Hits, ","), r.Counters)
}

type SelectIteratorResponse struct {
	IteratorID string
	FileCount  int
	Counters   SelectCounters
}

func (r SelectIteratorResponse) Encode() string {
	return fmt.Sprintf("select_iterator(%s;%d;%s)", r.IteratorID, r.FileCount, r.Counters)
}

type SelectFromIteratorResponse struct {
	Files      []string
	Position   int
	TotalFiles int
}

func (r SelectFromIteratorResponse) Encode() string {
	return fmt.Sprintf("select_from_iterator(%s;%d;%d)", strings.Join(r.Files, ","), r.Position, r.TotalFiles)
}

type ConfigResponse struct {
	Entries []store.ConfigEntry
}

func (r ConfigResponse) Encode() string {
	parts := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		parts[i] = fmt.Sprintf("%s=%s", e.Key, store.FormatConfigValue(e.Value))
	}
	return fmt.Sprintf("config(%s)", strings.Join(parts, ","))
}

type StatusResponse struct {
	Tasks []store.TaskStatus
}

func (r StatusResponse) Encode() string {
	parts := make([]string, len(r.Tasks))
	for i, t := range r.Tasks {
		parts[i] = fmt.Sprintf("%d:%s:%s", t.ID, t.ConnID, t.Request)
	}
	return fmt.Sprintf("status(%s)", strings.Join(parts, ","))
}

// TopologyEntry is the Topology command's per-dataset display row.
type TopologyEntry struct {
	ID       string
	Size     int64
	NumFiles int
	Taints   []string
	Indexes  []store.Index
}

type TopologyResponse struct {
	Datasets []TopologyEntry
}

func (r TopologyResponse) Encode() string {
	parts := make([]string, len(r.Datasets))
	for i, d := range r.Datasets {
		parts[i] = fmt.Sprintf("%s(size=%d,files=%d,taints=%s)", d.ID, d.Size, d.NumFiles, strings.Join(d.Taints, "+"))
	}
	return fmt.Sprintf("topology(%s)", strings.Join(parts, ","))
}

type PingResponse struct {
	ConnID []byte
}

func (r PingResponse) Encode() string {
	return fmt.Sprintf("ping(%s)", hex.EncodeToString(r.ConnID))
}
