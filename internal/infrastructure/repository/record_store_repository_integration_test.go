package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
	"github.com/mohammadpnp/record-exchange/internal/infrastructure/repository"
)

const recordsSchema = `
    CREATE TABLE IF NOT EXISTS records (
      id TEXT PRIMARY KEY,
      team_id TEXT NOT NULL,
      attributes JSONB NOT NULL DEFAULT '{}',
      import_id TEXT NOT NULL,
      imported_by TEXT,
      imported_at TIMESTAMPTZ NOT NULL,
      created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
      updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );
    `

func openIntegrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(context.Background(), recordsSchema); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := pool.Exec(context.Background(), "DELETE FROM records"); err != nil {
		t.Fatalf("failed to cleanup records: %v", err)
	}
	return pool
}

func TestRecordStoreCommitBatchIntegration(t *testing.T) {
	pool := openIntegrationPool(t)
	store := repository.NewRecordStoreRepository(pool)
	ctx := context.Background()

	batch := domain.Batch{
		ImportID:   "imp_1_abc",
		TeamID:     "team-1",
		ImportedBy: "user-1",
	}
	for i := 0; i < 10; i++ {
		batch.Records = append(batch.Records, domain.Record{
			ID: fmt.Sprintf("r%02d", i),
			Fields: map[string]any{
				"id":     fmt.Sprintf("r%02d", i),
				"status": "active",
				"contact": map[string]any{
					"email": fmt.Sprintf("lead%d@example.com", i),
				},
			},
		})
	}

	if err := store.CommitBatch(ctx, batch); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	count, err := store.Count(ctx, "team-1", nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 10 {
		t.Fatalf("expected 10 records, got %d", count)
	}

	// Re-committing the same batch upserts instead of duplicating.
	batch.Records[0].Fields["status"] = "churned"
	if err := store.CommitBatch(ctx, batch); err != nil {
		t.Fatalf("recommit failed: %v", err)
	}
	count, err = store.Count(ctx, "team-1", nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 10 {
		t.Fatalf("upsert duplicated rows: %d", count)
	}

	active, err := store.Count(ctx, "team-1", map[string]string{"status": "active"})
	if err != nil {
		t.Fatalf("filtered count failed: %v", err)
	}
	if active != 9 {
		t.Fatalf("expected 9 active records, got %d", active)
	}

	nested, err := store.Count(ctx, "team-1", map[string]string{"contact.email": "lead3@example.com"})
	if err != nil {
		t.Fatalf("nested filter count failed: %v", err)
	}
	if nested != 1 {
		t.Fatalf("expected 1 match on nested path, got %d", nested)
	}
}

func TestRecordStorePageIntegration(t *testing.T) {
	pool := openIntegrationPool(t)
	store := repository.NewRecordStoreRepository(pool)
	ctx := context.Background()

	batch := domain.Batch{ImportID: "imp_2_abc", TeamID: "team-1"}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("r%02d", i)
		batch.Records = append(batch.Records, domain.Record{ID: id, Fields: map[string]any{"id": id}})
	}
	if err := store.CommitBatch(ctx, batch); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	var got []string
	afterID := ""
	for {
		page, err := store.Page(ctx, "team-1", nil, afterID, 2)
		if err != nil {
			t.Fatalf("page failed: %v", err)
		}
		for _, rec := range page {
			got = append(got, rec.ID)
		}
		if len(page) < 2 {
			break
		}
		afterID = page[len(page)-1].ID
	}

	if len(got) != 5 {
		t.Fatalf("expected 5 records across pages, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("page order broken: %v", got)
		}
	}

	empty, err := store.Page(ctx, "team-9", nil, "", 10)
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no records for another team, got %d", len(empty))
	}
}

func TestRecordStoreRejectsOversizedBatch(t *testing.T) {
	pool := openIntegrationPool(t)
	store := repository.NewRecordStoreRepository(pool)

	batch := domain.Batch{ImportID: "imp_3_abc", TeamID: "team-1"}
	for i := 0; i < 501; i++ {
		batch.Records = append(batch.Records, domain.Record{ID: fmt.Sprintf("r%03d", i)})
	}

	if err := store.CommitBatch(context.Background(), batch); err == nil {
		t.Fatal("expected oversized batch to be refused")
	}
}
