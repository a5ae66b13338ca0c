package writer

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	pkgbigquery "github.com/mvalverde/agrolink-backend/pkg/bigquery"
	"google.golang.org/api/googleapi"
)

type recordedInsert struct {
	table string
	rows  int
}

// stubInserter replaces the BigQuery client behind the writer and
// replies with a scripted error per call.
type stubInserter struct {
	script  []error
	inserts []recordedInsert
}

func (s *stubInserter) InsertRows(_ context.Context, table string, rows []any) error {
	call := len(s.inserts)
	s.inserts = append(s.inserts, recordedInsert{table: table, rows: len(rows)})
	if call < len(s.script) {
		return s.script[call]
	}
	return nil
}

func newTestWriter(t *testing.T) (*BigQueryWriter, *stubInserter) {
	t.Helper()
	w, err := New(&pkgbigquery.Client{}, Config{MarketplaceTable: "marketplace_events"})
	if err != nil {
		t.Fatalf("construct writer: %v", err)
	}
	stub := &stubInserter{}
	w.client = stub
	return w, stub
}

func TestNewRejectsMissingClientOrTable(t *testing.T) {
	if _, err := New(nil, Config{MarketplaceTable: "marketplace_events"}); err == nil {
		t.Fatal("nil client accepted")
	}
	if _, err := New(&pkgbigquery.Client{}, Config{MarketplaceTable: "   "}); err == nil {
		t.Fatal("blank marketplace table accepted")
	}
}

func TestEncodeJSON(t *testing.T) {
	nj, err := EncodeJSON(map[string]any{"crop": "maize"})
	if err != nil {
		t.Fatalf("encode map: %v", err)
	}
	if !nj.Valid {
		t.Fatal("map payload should be valid JSON")
	}

	nj, err = EncodeJSON(nil)
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	if nj.Valid {
		t.Fatal("nil payload should yield a BigQuery NULL")
	}

	raw := json.RawMessage(`{"crop":"beans"}`)
	nj, err = EncodeJSON(raw)
	if err != nil {
		t.Fatalf("encode raw message: %v", err)
	}
	if nj.JSONVal != string(raw) {
		t.Fatalf("raw message not passed through, got %s", nj.JSONVal)
	}
}

func TestInsertMarketplaceRetriesTransientFailures(t *testing.T) {
	w, stub := newTestWriter(t)
	stub.script = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := w.InsertMarketplace(context.Background(), types.MarketplaceEventRow{EventID: "evt-1"}); err != nil {
		t.Fatalf("insert should succeed on second attempt: %v", err)
	}
	if len(stub.inserts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(stub.inserts))
	}
	if stub.inserts[1].table != w.marketplaceTable {
		t.Fatalf("retry targeted table %s", stub.inserts[1].table)
	}
	if len(w.buffer) != 0 {
		t.Fatal("buffer must drain after a successful insert")
	}
}

func TestInsertMarketplaceBuffersUntilBatchFull(t *testing.T) {
	w, stub := newTestWriter(t)
	w.batchSize = 2

	if err := w.InsertMarketplace(context.Background(), types.MarketplaceEventRow{EventID: "evt-1"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if len(stub.inserts) != 0 {
		t.Fatalf("flushed early after %d rows", len(stub.inserts))
	}

	if err := w.InsertMarketplace(context.Background(), types.MarketplaceEventRow{EventID: "evt-2"}); err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if len(stub.inserts) != 1 || stub.inserts[0].rows != 2 {
		t.Fatalf("expected one flush of 2 rows, got %+v", stub.inserts)
	}
}

func TestFlushDrainsPartialBatch(t *testing.T) {
	w, stub := newTestWriter(t)
	w.batchSize = 10

	if err := w.InsertMarketplace(context.Background(), types.MarketplaceEventRow{EventID: "evt-1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(stub.inserts) != 1 || stub.inserts[0].rows != 1 {
		t.Fatalf("expected one flush of 1 row, got %+v", stub.inserts)
	}
	if len(w.buffer) != 0 {
		t.Fatalf("buffer holds %d rows after flush", len(w.buffer))
	}
}
