// internal/output/database_test.go
package output

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestDatabaseSinkSQLiteUpsert(t *testing.T) {
	ctx := context.Background()
	sink, err := NewDatabaseSink(ctx, DatabaseOptions{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "db", "draws.db"),
	})
	if err != nil {
		t.Fatalf("NewDatabaseSink failed: %v", err)
	}
	defer sink.Close()

	rec := testRecord()
	if err := sink.Store(ctx, rec, rec.FileName()); err != nil {
		t.Fatalf("first Store failed: %v", err)
	}

	refined := testRecord("SS 123456")
	if err := sink.Store(ctx, refined, refined.FileName()); err != nil {
		t.Fatalf("second Store failed: %v", err)
	}

	n, err := sink.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one row after refinement, got %d", n)
	}

	row, err := sink.lookup(ctx, "SS", "485", "2025-09-16")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !row.HasResults {
		t.Error("refined row should report results")
	}
	first, ok := row.Prizes.Get("1st_prize")
	if !ok || first.Winners[0] != "SS 123456" {
		t.Errorf("unexpected prizes %+v", row.Prizes)
	}
}

func TestNewDatabaseSinkValidation(t *testing.T) {
	tests := []struct {
		name string
		opts DatabaseOptions
	}{
		{"missing dsn", DatabaseOptions{Driver: "sqlite3"}},
		{"unknown driver", DatabaseOptions{Driver: "oracle", DSN: "x"}},
		{"bad table", DatabaseOptions{Driver: "sqlite3", DSN: "x.db", Table: "draws; DROP"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDatabaseSink(context.Background(), tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDialectStatements(t *testing.T) {
	pg, err := newDialect("postgres", "draws")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(pg.upsert, "$11") || !strings.Contains(pg.upsert, "ON CONFLICT (lottery_code, draw_number, draw_date)") {
		t.Errorf("unexpected postgres upsert: %s", pg.upsert)
	}
	if !strings.Contains(pg.createTable, "JSONB") {
		t.Errorf("unexpected postgres schema: %s", pg.createTable)
	}

	my, err := newDialect("mysql", "draws")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(my.upsert, "ON DUPLICATE KEY UPDATE") || strings.Count(my.upsert, "?") != len(drawColumns) {
		t.Errorf("unexpected mysql upsert: %s", my.upsert)
	}
	if !strings.Contains(my.createTable, "VARCHAR(64)") {
		t.Errorf("unexpected mysql schema: %s", my.createTable)
	}
}

func TestRecordDocument(t *testing.T) {
	doc := RecordDocument(testRecord("SS 123456"))

	m := doc.Map()
	if m["lottery_code"] != "SS" || m["has_results"] != true {
		t.Errorf("unexpected document %v", m)
	}
	prizes, ok := m["prizes"].(bson.D)
	if !ok || len(prizes) != 2 || prizes[0].Key != "1st_prize" {
		t.Errorf("unexpected prizes %v", m["prizes"])
	}
}

func TestNewMongoDBSinkValidation(t *testing.T) {
	if _, err := NewMongoDBSink(context.Background(), MongoDBOptions{}); err == nil {
		t.Error("expected error without connection string")
	}
	if _, err := NewMongoDBSink(context.Background(), MongoDBOptions{ConnectionString: "mongodb://localhost"}); err == nil {
		t.Error("expected error without database")
	}
}
