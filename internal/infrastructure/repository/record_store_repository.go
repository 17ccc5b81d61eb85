package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

// maxBatchDocuments is the store's hard per-commit limit. The chunker keeps
// batches under it; the repository still refuses oversized batches so the
// limit is enforced where the commit happens.
const maxBatchDocuments = 500

const upsertRecordSQL = `
INSERT INTO records (id, team_id, attributes, import_id, imported_by, imported_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
ON CONFLICT (id) DO UPDATE
  SET team_id = EXCLUDED.team_id,
      attributes = EXCLUDED.attributes,
      import_id = EXCLUDED.import_id,
      imported_by = EXCLUDED.imported_by,
      imported_at = EXCLUDED.imported_at,
      updated_at = NOW()
`

// RecordStoreRepository is the primary records store on postgres. One
// CommitBatch call is one transaction: the whole batch lands or none of it
// does, which is what lets a failed chunk be retried blindly.
type RecordStoreRepository struct {
	pool *pgxpool.Pool
}

func NewRecordStoreRepository(pool *pgxpool.Pool) *RecordStoreRepository {
	return &RecordStoreRepository{pool: pool}
}

func (r *RecordStoreRepository) CommitBatch(ctx context.Context, batch domain.Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}
	if len(batch.Records) > maxBatchDocuments {
		return fmt.Errorf("batch of %d records exceeds the %d document limit", len(batch.Records), maxBatchDocuments)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch commit: %w", err)
	}
	defer tx.Rollback(ctx)

	importedAt := time.Now().UTC()
	queued := &pgx.Batch{}
	for _, rec := range batch.Records {
		attributes, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ID, err)
		}
		queued.Queue(upsertRecordSQL, rec.ID, batch.TeamID, string(attributes), batch.ImportID, batch.ImportedBy, importedAt)
	}

	results := tx.SendBatch(ctx, queued)
	for i := range batch.Records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("upsert record %s: %w", batch.Records[i].ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (r *RecordStoreRepository) Count(ctx context.Context, teamID string, filters map[string]string) (int64, error) {
	where, args := buildFilterClause(teamID, filters)

	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM records WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// Page returns up to limit records strictly after afterID in id order, which
// keeps export pagination stable while imports run concurrently.
func (r *RecordStoreRepository) Page(ctx context.Context, teamID string, filters map[string]string, afterID string, limit int) ([]domain.Record, error) {
	where, args := buildFilterClause(teamID, filters)
	args = append(args, afterID)
	where += fmt.Sprintf(" AND id > $%d", len(args))
	args = append(args, limit)

	query := fmt.Sprintf("SELECT id, attributes FROM records WHERE %s ORDER BY id LIMIT $%d", where, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("page records: %w", err)
	}
	defer rows.Close()

	var page []domain.Record
	for rows.Next() {
		var id string
		var attributes []byte
		if err := rows.Scan(&id, &attributes); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		fields := map[string]any{}
		if len(attributes) > 0 {
			if err := json.Unmarshal(attributes, &fields); err != nil {
				return nil, fmt.Errorf("decode record %s: %w", id, err)
			}
		}
		page = append(page, domain.Record{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return page, nil
}

// buildFilterClause turns the opaque filter map into jsonb path equality
// predicates. Keys are sorted so the generated SQL is deterministic.
func buildFilterClause(teamID string, filters map[string]string) (string, []any) {
	clauses := []string{"team_id = $1"}
	args := []any{teamID}

	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := strings.Split(key, ".")
		args = append(args, path)
		pathArg := len(args)
		args = append(args, filters[key])
		clauses = append(clauses, fmt.Sprintf("attributes #>> $%d = $%d", pathArg, len(args)))
	}

	return strings.Join(clauses, " AND "), args
}
