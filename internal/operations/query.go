package operations

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/litetable/litetable-kvs/internal/litetable"
)

const hexPrefix = "hex:"

// RangeQuery is a range scan written as text, the form the CLI accepts.
type RangeQuery struct {
	Table     string
	Request   litetable.RangeRequest
	Timestamp uint64
}

// ParseRangeQuery parses space separated key=value pairs:
//
//	table=users start=a end=m reverse=true column=name columns=a,b batch=10 ts=42
//
// table is required. Names prefixed with "hex:" are hex decoded.
func ParseRangeQuery(input string) (*RangeQuery, error) {
	parts := strings.Fields(input)
	parsed := &RangeQuery{}
	var (
		opts []litetable.RangeOption
		cols [][]byte
	)

	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, newError(errInvalidFormat,
				"queries are key=value pairs, got: %s", part)
		}

		key, value := kv[0], kv[1]
		switch key {
		case "table":
			parsed.Table = value
		case "start", "end":
			name, err := parseName(value)
			if err != nil {
				return nil, err
			}
			if key == "start" {
				opts = append(opts, litetable.WithStart(name))
			} else {
				opts = append(opts, litetable.WithEnd(name))
			}
		case "reverse":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, newError(errInvalidFormat, "reverse must be a boolean. received %s",
					value)
			}
			opts = append(opts, litetable.WithReverse(b))
		case "column", "columns":
			for _, c := range strings.Split(value, ",") {
				name, err := parseName(c)
				if err != nil {
					return nil, err
				}
				cols = append(cols, name)
			}
		case "batch":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, newError(errInvalidFormat, "batch must be a number. received %s",
					value)
			}
			opts = append(opts, litetable.WithBatchHint(n))
		case "ts":
			ts, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return nil, newError(errInvalidFormat, "ts must be an unsigned number. received %s",
					value)
			}
			parsed.Timestamp = ts
		default:
			return nil, newError(errUnknownParameter, "%s", key)
		}
	}

	if parsed.Table == "" {
		return nil, newError(errMissingTable, "provide table=<name>")
	}

	if len(cols) > 0 {
		opts = append(opts, litetable.WithColumns(cols...))
	}
	req, err := litetable.NewRangeRequest(opts...)
	if err != nil {
		return nil, err
	}
	parsed.Request = req
	return parsed, nil
}

func parseName(value string) ([]byte, error) {
	if !strings.HasPrefix(value, hexPrefix) {
		return []byte(value), nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(value, hexPrefix))
	if err != nil {
		return nil, newError(errInvalidFormat, "bad hex name %s", value)
	}
	return b, nil
}

// RowsQuery is a row lookup written as text.
type RowsQuery struct {
	Table     string
	Rows      [][]byte
	Columns   litetable.ColumnSelection
	Timestamp uint64
}

// ParseRowsQuery parses space separated key=value pairs:
//
//	table=users rows=a,hex:00ff columns=name ts=42
//
// table and rows are required.
func ParseRowsQuery(input string) (*RowsQuery, error) {
	parsed := &RowsQuery{Columns: litetable.AllColumns()}
	var cols [][]byte
	for _, part := range strings.Fields(input) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, newError(errInvalidFormat,
				"queries are key=value pairs, got: %s", part)
		}
		switch key {
		case "table":
			parsed.Table = value
		case "row", "rows":
			names, err := parseNames(value)
			if err != nil {
				return nil, err
			}
			parsed.Rows = append(parsed.Rows, names...)
		case "column", "columns":
			names, err := parseNames(value)
			if err != nil {
				return nil, err
			}
			cols = append(cols, names...)
		case "ts":
			ts, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return nil, newError(errInvalidFormat, "ts must be an unsigned number. received %s",
					value)
			}
			parsed.Timestamp = ts
		default:
			return nil, newError(errUnknownParameter, "%s", key)
		}
	}

	if parsed.Table == "" {
		return nil, newError(errMissingTable, "provide table=<name>")
	}
	if len(parsed.Rows) == 0 {
		return nil, newError(errInvalidFormat, "provide rows=<name>[,<name>]")
	}
	if len(cols) > 0 {
		parsed.Columns = litetable.SelectColumns(cols...)
	}
	return parsed, nil
}

// ParseTable parses a payload holding only table=<name>.
func ParseTable(input string) (string, error) {
	fields := strings.Fields(input)
	if len(fields) != 1 {
		return "", newError(errInvalidFormat, "expected table=<name>, got: %s", input)
	}
	key, value, ok := strings.Cut(fields[0], "=")
	if !ok || key != "table" {
		return "", newError(errInvalidFormat, "expected table=<name>, got: %s", input)
	}
	if value == "" {
		return "", newError(errMissingTable, "provide table=<name>")
	}
	return value, nil
}

func parseNames(value string) ([][]byte, error) {
	var out [][]byte
	for _, v := range strings.Split(value, ",") {
		name, err := parseName(v)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// SweepQuery asks for the shadowed versions of a table below Before to be removed.
type SweepQuery struct {
	Table  string
	Before uint64
}

// ParseSweepQuery parses table=<name> before=<ts>. Both are required.
func ParseSweepQuery(input string) (*SweepQuery, error) {
	parsed := &SweepQuery{}
	for _, part := range strings.Fields(input) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, newError(errInvalidFormat,
				"queries are key=value pairs, got: %s", part)
		}
		switch key {
		case "table":
			parsed.Table = value
		case "before":
			ts, err := strconv.ParseUint(value, 10, 64)
			if err != nil || ts == 0 {
				return nil, newError(errInvalidFormat,
					"before must be a number above 0. received %s", value)
			}
			parsed.Before = ts
		default:
			return nil, newError(errUnknownParameter, "%s", key)
		}
	}

	if parsed.Table == "" {
		return nil, newError(errMissingTable, "provide table=<name>")
	}
	if parsed.Before == 0 {
		return nil, newError(errInvalidFormat, "provide before=<ts>")
	}
	return parsed, nil
}
