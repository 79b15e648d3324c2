// internal/output/database.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/valpere/klresults/pkg/types"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DatabaseOptions configures the SQL sink.
type DatabaseOptions struct {
	Driver string // sqlite3, postgres or mysql
	DSN    string
	Table  string
}

// dialect holds the driver-specific SQL.
type dialect struct {
	placeholder func(n int) string
	createTable string
	upsert      string
}

var drawColumns = []string{
	"lottery_code", "draw_number", "draw_date", "lottery_name", "venue",
	"download_link", "prizes", "has_results", "file_name", "source_url", "updated_at",
}

// DatabaseSink upserts every record into a draws table keyed by lottery
// code, draw number and draw date, so a refined record replaces the
// placeholder version.
type DatabaseSink struct {
	db      *sql.DB
	driver  string
	table   string
	dialect dialect
}

// NewDatabaseSink opens the database and creates the table when missing.
func NewDatabaseSink(ctx context.Context, options DatabaseOptions) (*DatabaseSink, error) {
	if options.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	if options.Table == "" {
		options.Table = "draws"
	}
	if !tableNameRe.MatchString(options.Table) {
		return nil, fmt.Errorf("invalid table name %q", options.Table)
	}

	d, err := newDialect(options.Driver, options.Table)
	if err != nil {
		return nil, err
	}

	dsn := options.DSN
	if options.Driver == "sqlite3" {
		if !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, ":memory:") {
			if dir := filepath.Dir(dsn); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return nil, fmt.Errorf("failed to create database directory: %w", err)
				}
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_busy_timeout=5000&_journal_mode=WAL"
		}
	}

	db, err := sql.Open(options.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", options.Driver, err)
	}
	if options.Driver == "sqlite3" {
		db.SetMaxOpenConns(1) // SQLite works best with single writer
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", options.Driver, err)
	}
	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", options.Table, err)
	}

	return &DatabaseSink{db: db, driver: options.Driver, table: options.Table, dialect: d}, nil
}

func newDialect(driver, table string) (dialect, error) {
	switch driver {
	case "sqlite3":
		return dialect{
			placeholder: func(int) string { return "?" },
			createTable: createTableSQL(table, "TEXT", "TEXT", "INTEGER", "TIMESTAMP"),
			upsert:      conflictUpsert(table, func(int) string { return "?" }),
		}, nil
	case "postgres":
		ph := func(n int) string { return fmt.Sprintf("$%d", n) }
		return dialect{
			placeholder: ph,
			createTable: createTableSQL(table, "TEXT", "JSONB", "BOOLEAN", "TIMESTAMPTZ"),
			upsert:      conflictUpsert(table, ph),
		}, nil
	case "mysql":
		ph := func(int) string { return "?" }
		return dialect{
			placeholder: ph,
			createTable: createTableSQL(table, "VARCHAR(64)", "JSON", "BOOLEAN", "DATETIME"),
			upsert:      duplicateKeyUpsert(table),
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

func createTableSQL(table, keyType, jsonType, boolType, timeType string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	lottery_code %[2]s NOT NULL,
	draw_number %[2]s NOT NULL,
	draw_date %[2]s NOT NULL,
	lottery_name TEXT,
	venue TEXT,
	download_link TEXT,
	prizes %[3]s,
	has_results %[4]s,
	file_name TEXT,
	source_url TEXT,
	updated_at %[5]s,
	PRIMARY KEY (lottery_code, draw_number, draw_date)
)`, table, keyType, jsonType, boolType, timeType)
}

func conflictUpsert(table string, ph func(int) string) string {
	values := make([]string, len(drawColumns))
	for i := range drawColumns {
		values[i] = ph(i + 1)
	}
	var updates []string
	for _, c := range drawColumns[3:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (lottery_code, draw_number, draw_date) DO UPDATE SET %s",
		table, strings.Join(drawColumns, ", "), strings.Join(values, ", "), strings.Join(updates, ", "))
}

func duplicateKeyUpsert(table string) string {
	values := strings.TrimSuffix(strings.Repeat("?, ", len(drawColumns)), ", ")
	var updates []string
	for _, c := range drawColumns[3:] {
		updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", c, c))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		table, strings.Join(drawColumns, ", "), values, strings.Join(updates, ", "))
}

func (s *DatabaseSink) Name() string { return s.driver }

// Store upserts rec.
func (s *DatabaseSink) Store(ctx context.Context, rec *types.DrawRecord, fileName string) error {
	prizes, err := rec.Prizes.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode prizes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.dialect.upsert,
		rec.LotteryCode, rec.DrawNumber, rec.DrawDate, rec.LotteryName, rec.Venue,
		rec.DownloadLink, string(prizes), rec.HasActualResults(), fileName, rec.SourceURL,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert draw %s: %w", fileName, err)
	}
	return nil
}

// storedDraw is a row of the draws table.
type storedDraw struct {
	LotteryCode string
	DrawNumber  string
	DrawDate    string
	LotteryName string
	HasResults  bool
	Prizes      types.Prizes
}

func (s *DatabaseSink) lookup(ctx context.Context, code, drawNumber, drawDate string) (*storedDraw, error) {
	query := fmt.Sprintf("SELECT lottery_code, draw_number, draw_date, lottery_name, has_results, prizes FROM %s WHERE lottery_code = %s AND draw_number = %s AND draw_date = %s",
		s.table, s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3))

	var (
		row    storedDraw
		prizes string
	)
	err := s.db.QueryRowContext(ctx, query, code, drawNumber, drawDate).
		Scan(&row.LotteryCode, &row.DrawNumber, &row.DrawDate, &row.LotteryName, &row.HasResults, &prizes)
	if err != nil {
		return nil, err
	}
	if err := row.Prizes.UnmarshalJSON([]byte(prizes)); err != nil {
		return nil, fmt.Errorf("failed to decode prizes: %w", err)
	}
	return &row, nil
}

// Count returns the number of stored draws.
func (s *DatabaseSink) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *DatabaseSink) Close() error {
	return s.db.Close()
}
