// Package store provides a generic filtered-read interface over the
// curated OSINT tables. The tables themselves are owned and populated
// by the upstream ingestion pipeline; this package only reads them,
// with the single exception of the usage log insert.
package store

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the underlying store connection cannot be
// reached. Callers convert it into their own per-operation error kind
// and must not retry internally.
var ErrUnavailable = errors.New("store unavailable")

// Record is one row as returned by the store. Column sets vary per
// table and per query, so rows stay schemaless at this layer.
type Record map[string]any

// Str returns the value at key as a string, or "" when the value is
// absent or null.
func (r Record) Str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// StrPtr returns the value at key as a *string, or nil when the value
// is absent or null. Use this where null must survive into the
// response instead of collapsing to "".
func (r Record) StrPtr(key string) *string {
	switch v := r[key].(type) {
	case string:
		return &v
	case []byte:
		s := string(v)
		return &s
	default:
		return nil
	}
}

// Int returns the value at key as an int, or 0 when absent or not numeric.
func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// IntPtr is Int with null preserved.
func (r Record) IntPtr(key string) *int {
	switch v := r[key].(type) {
	case int64:
		n := int(v)
		return &n
	case int:
		return &v
	case float64:
		n := int(v)
		return &n
	default:
		return nil
	}
}

// FloatPtr returns the value at key as a *float64, or nil when absent.
func (r Record) FloatPtr(key string) *float64 {
	switch v := r[key].(type) {
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

type filterOp int

const (
	opEq filterOp = iota
	opIEq
	opContains
	opGte
	opContainsAny
)

// Filter is a single WHERE condition. Construct via Eq, IEq, Contains,
// Gte, or ContainsAny.
type Filter struct {
	op     filterOp
	column string
	// second column for ContainsAny
	orColumn string
	value    any
}

// Eq matches rows where column equals value exactly.
func Eq(column string, value any) Filter {
	return Filter{op: opEq, column: column, value: value}
}

// IEq matches rows where column equals value, ignoring case.
func IEq(column, value string) Filter {
	return Filter{op: opIEq, column: column, value: value}
}

// Contains matches rows where column contains term, ignoring case.
// The term is escaped so LIKE wildcards in user input match literally.
func Contains(column, term string) Filter {
	return Filter{op: opContains, column: column, value: term}
}

// Gte matches rows where column >= value. Timestamps are RFC 3339
// strings throughout, so string comparison is chronological.
func Gte(column string, value any) Filter {
	return Filter{op: opGte, column: column, value: value}
}

// ContainsAny matches rows where either column contains term,
// ignoring case. Used for multi-field search.
func ContainsAny(columnA, columnB, term string) Filter {
	return Filter{op: opContainsAny, column: columnA, orColumn: columnB, value: term}
}

// Query describes one filtered, ordered, limited read.
type Query struct {
	Table   string
	Columns []string // nil selects all columns
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Store is the record store contract. Find returns an empty slice,
// never an error, when no rows match. Insert exists solely for the
// usage log.
type Store interface {
	Find(ctx context.Context, q Query) ([]Record, error)
	Insert(ctx context.Context, table string, rec Record) error
	Ping(ctx context.Context) error
	Close() error
}
