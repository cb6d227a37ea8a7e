// Package snapshot exports a dynasty's full row set to a timestamped JSON
// bundle in S3. It is read-only with respect to the engine: a second
// consumer of the Persistence Store's read path, not a backup mechanism
// the controller depends on for correctness.
package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nfl-analytics/backend/internal/store"
)

// DefaultTables is the row set exported for a dynasty absent an explicit
// table list: every table keyed by dynasty_id that matters for resuming a
// dynasty from scratch.
var DefaultTables = []string{
	"dynasties", "teams", "players", "contracts", "standings",
	"cap_transactions", "events", "draft_picks",
}

// Bundle is the full JSON document uploaded for one export.
type Bundle struct {
	Dynasty    string                      `json:"dynasty"`
	ExportedAt time.Time                   `json:"exported_at"`
	Tables     map[string][]map[string]any `json:"tables"`
}

// Exporter reads a dynasty's rows from the Persistence Store and uploads
// them to S3 as one JSON object per export.
type Exporter struct {
	uploader *manager.Uploader
	bucket   string
	store    store.Store
}

// NewExporter builds an Exporter targeting bucket, reading from st.
func NewExporter(client *s3.Client, bucket string, st store.Store) *Exporter {
	return &Exporter{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		store:    st,
	}
}

// Export builds a Bundle from tables (DefaultTables if nil) for dynasty and
// uploads it, returning the object key it was stored under.
func (e *Exporter) Export(ctx context.Context, dynasty string, tables []string) (string, error) {
	if tables == nil {
		tables = DefaultTables
	}

	bundle, err := e.buildBundle(ctx, dynasty, tables)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}

	key := fmt.Sprintf("dynasties/%s/%s.json", dynasty, bundle.ExportedAt.Format("20060102T150405Z"))
	if err := e.uploadBytes(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

func (e *Exporter) buildBundle(ctx context.Context, dynasty string, tables []string) (Bundle, error) {
	bundle := Bundle{
		Dynasty:    dynasty,
		ExportedAt: time.Now().UTC(),
		Tables:     make(map[string][]map[string]any, len(tables)),
	}

	for _, table := range tables {
		rows, err := e.readTable(ctx, table, dynasty)
		if err != nil {
			return Bundle{}, fmt.Errorf("reading table %s: %w", table, err)
		}
		bundle.Tables[table] = rows
	}
	return bundle, nil
}

// readTable scans every dynasty-scoped row of table into a generic
// column-name-keyed map. table is always one of the fixed names in
// DefaultTables or a caller-supplied list of known table names, never
// user input, so building the query with fmt.Sprintf is safe here.
func (e *Exporter) readTable(ctx context.Context, table, dynasty string) ([]map[string]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE dynasty_id = $1", table)
	rows, err := e.store.DB().QueryContext(ctx, query, dynasty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalize(vals[i])
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// normalize converts driver-specific byte-slice values (common for SQLite's
// TEXT/NUMERIC affinity and Postgres's lib/pq scans) into plain strings so
// the JSON encoding is stable across both backends.
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case sql.RawBytes:
		return string(t)
	default:
		return v
	}
}

func (e *Exporter) uploadBytes(ctx context.Context, key string, data []byte) error {
	_, err := e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	return nil
}
