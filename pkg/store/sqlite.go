package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Store backed by a local sqlite database. All curated
// tables (news_item, story, signal, entity_* and the join tables) are
// created and populated by the ingestion pipeline; this adapter only
// creates the usage log table it writes to.
type SQLite struct {
	conn   *sql.DB
	logger *slog.Logger
}

func NewSQLite(path string) (*SQLite, error) {
	return NewSQLiteWithLogger(path, slog.Default())
}

func NewSQLiteWithLogger(path string, logger *slog.Logger) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := &SQLite{conn: conn, logger: logger}
	if err := s.ensureUsageLog(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare usage log: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) ensureUsageLog() error {
	_, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS mcp_usage_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tool_name TEXT NOT NULL,
		params TEXT,
		client_id TEXT,
		response_status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

// Find executes one filtered read. Table and column names always come
// from the closed per-kind lookup tables in the calling packages, never
// from request input; only filter values are parameterized.
func (s *SQLite) Find(ctx context.Context, q Query) ([]Record, error) {
	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(q.Columns, ", ")
	}

	var sb strings.Builder
	args := []any{}
	fmt.Fprintf(&sb, "SELECT %s FROM %s", cols, q.Table)

	if len(q.Filters) > 0 {
		clauses := make([]string, 0, len(q.Filters))
		for _, f := range q.Filters {
			clause, clauseArgs := buildClause(f)
			clauses = append(clauses, clause)
			args = append(args, clauseArgs...)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", q.OrderBy, dir)
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := s.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		s.logger.Error("store query failed",
			slog.String("table", q.Table),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *SQLite) Insert(ctx context.Context, table string, rec Record) error {
	cols := make([]string, 0, len(rec))
	for col := range rec {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = "?"
		args[i] = rec[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func buildClause(f Filter) (string, []any) {
	switch f.op {
	case opEq:
		return f.column + " = ?", []any{f.value}
	case opIEq:
		return "lower(" + f.column + ") = lower(?)", []any{f.value}
	case opContains:
		return "lower(" + f.column + `) LIKE ? ESCAPE '\'`, []any{likePattern(f.value)}
	case opGte:
		return f.column + " >= ?", []any{f.value}
	case opContainsAny:
		p := likePattern(f.value)
		return "(lower(" + f.column + `) LIKE ? ESCAPE '\' OR lower(` + f.orColumn + `) LIKE ? ESCAPE '\')`, []any{p, p}
	default:
		// unreachable: Filter can only be built by the constructors above
		return "1 = 1", nil
	}
}

// likePattern builds a case-insensitive contains pattern with LIKE
// metacharacters in the search term escaped to match literally.
func likePattern(v any) string {
	term, _ := v.(string)
	term = strings.ToLower(term)
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + esc.Replace(term) + "%"
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := []Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		rec := Record{}
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
			} else {
				rec[col] = values[i]
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}
