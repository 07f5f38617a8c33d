// Package supabase implements storage.Repository for a Supabase project:
// schema changes go through the SQL connection string (pgx), while rows are
// loaded through the project's PostgREST endpoint so the write path matches
// what the rest of the project's API surface enforces.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sheetsync/internal/storage"
	"sheetsync/internal/storage/postgres"
)

// Repo implements storage.Repository for Supabase.
type Repo struct {
	ddl storage.Repository

	endpoint string
	key      string
	client   *http.Client
}

func init() {
	storage.Register("supabase", New)
}

// New validates the REST endpoint configuration, then opens the SQL half
// through the postgres backend.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("supabase: missing Endpoint")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, fmt.Errorf("supabase: missing Key")
	}

	ddl, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Repo{
		ddl:      ddl,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		key:      cfg.Key,
		client:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (r *Repo) Close() { r.ddl.Close() }

// ReplaceTable delegates to the SQL half; PostgREST learns about the new
// shape through the schema-reload notification issued there.
func (r *Repo) ReplaceTable(ctx context.Context, spec storage.TableSpec) error {
	return r.ddl.ReplaceTable(ctx, spec)
}

// UpsertRows posts the whole batch to PostgREST with merge-duplicates
// resolution, the REST equivalent of an identity-keyed upsert.
func (r *Repo) UpsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return 0, nil
	}

	payload := make([]map[string]any, len(rows))
	for i, row := range rows {
		obj := make(map[string]any, len(columns))
		for j, col := range columns {
			obj[col] = row[j]
		}
		payload[i] = obj
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("supabase: encode rows: %w", err)
	}

	u := r.endpoint + "/rest/v1/" + url.PathEscape(table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+r.key)
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("supabase: upsert %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("supabase: upsert %s: status %d: %s", table, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return int64(len(rows)), nil
}
