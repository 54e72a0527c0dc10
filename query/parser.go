package query

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parse turns one request line into a Command. The real command grammar is an
// external collaborator this core only consumes; this is a minimal concrete
// stand-in sufficient to exercise the dispatch pipeline end to end — a
// line-oriented, space-separated grammar of the form `VERB arg1 arg2 ...`.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("empty command")
	}
	verb, args := strings.ToUpper(fields[0]), fields[1:]

	switch verb {
	case "PING":
		return &PingCommand{}, nil

	case "STATUS":
		return &StatusCommand{}, nil

	case "TOPOLOGY":
		return &TopologyCommand{}, nil

	case "SELECT":
		return parseSelect(args)

	case "POP":
		if len(args) != 2 {
			return nil, errors.New("usage: POP <iterator_id> <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, errors.Wrap(err, "invalid pop count")
		}
		return &IteratorPopCommand{IteratorID: args[0], N: n}, nil

	case "INDEX":
		if len(args) == 0 {
			return nil, errors.New("usage: INDEX [force] <path>...")
		}
		ensureUnique, paths := true, args
		if args[0] == "force" {
			ensureUnique, paths = false, args[1:]
		}
		if len(paths) == 0 {
			return nil, errors.New("INDEX requires at least one path")
		}
		return &IndexCommand{Paths: paths, EnsureUnique: ensureUnique}, nil

	case "INDEXFROM":
		if len(args) == 0 {
			return nil, errors.New("usage: INDEXFROM [force] <list_path>")
		}
		ensureUnique, listPath := true, args[0]
		if args[0] == "force" {
			if len(args) < 2 {
				return nil, errors.New("usage: INDEXFROM force <list_path>")
			}
			ensureUnique, listPath = false, args[1]
		}
		return &IndexFromCommand{ListPath: listPath, EnsureUnique: ensureUnique}, nil

	case "CONFIGGET":
		return &ConfigGetCommand{Keys: args}, nil

	case "CONFIGSET":
		if len(args) != 2 {
			return nil, errors.New("usage: CONFIGSET <key> <value>")
		}
		value, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "invalid config value")
		}
		return &ConfigSetCommand{Key: args[0], Value: value}, nil

	case "REINDEX":
		if len(args) != 1 {
			return nil, errors.New("usage: REINDEX <dataset_id>")
		}
		return &ReindexCommand{DatasetID: args[0]}, nil

	case "COMPACT":
		mode := CompactSmart
		if len(args) == 1 && args[0] == "full" {
			mode = CompactFull
		}
		return &CompactCommand{Mode: mode}, nil

	case "TAINT", "UNTAINT":
		if len(args) != 2 {
			return nil, errors.Errorf("usage: %s <dataset_id> <tag>", verb)
		}
		return &TaintCommand{DatasetID: args[0], Tag: args[1], Add: verb == "TAINT"}, nil

	case "DROP":
		if len(args) != 1 {
			return nil, errors.New("usage: DROP <dataset_id>")
		}
		return &DatasetDropCommand{DatasetID: args[0]}, nil

	default:
		return nil, errors.Errorf("unknown command %q", fields[0])
	}
}

// parseSelect accepts: SELECT [iterator] [in:ds1,ds2] [taint:tag] "query text..."
func parseSelect(args []string) (Command, error) {
	cmd := &SelectCommand{}
	var queryParts []string
	for _, arg := range args {
		switch {
		case arg == "iterator":
			cmd.AsIterator = true
		case strings.HasPrefix(arg, "in:"):
			cmd.Datasets = strings.Split(strings.TrimPrefix(arg, "in:"), ",")
		case strings.HasPrefix(arg, "taint:"):
			cmd.Taint = strings.TrimPrefix(arg, "taint:")
		default:
			queryParts = append(queryParts, arg)
		}
	}
	if len(queryParts) == 0 {
		return nil, errors.New("SELECT requires a query")
	}
	cmd.Query = strings.Join(queryParts, " ")
	return cmd, nil
}
