package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"datapilot/domain/analysis"
	"datapilot/domain/core"

	"github.com/jmoiron/sqlx"
)

// StoredDataset is an uploaded dataset with its latest cleaned version
type StoredDataset struct {
	ID             core.DatasetID
	RoleID         core.RoleID
	FileName       string
	Columns        []string
	Rows           []analysis.Row
	CleanedColumns []string
	CleanedRows    []analysis.Row
	CreatedAt      time.Time
}

// Current returns the cleaned data when present, else the upload
func (d *StoredDataset) Current() ([]string, []analysis.Row) {
	if len(d.CleanedRows) > 0 {
		return d.CleanedColumns, d.CleanedRows
	}
	return d.Columns, d.Rows
}

type datasetRow struct {
	ID             string         `db:"id"`
	RoleID         string         `db:"role_id"`
	FileName       string         `db:"file_name"`
	ColumnNames    string         `db:"column_names"`
	RowData        string         `db:"row_data"`
	CleanedColumns sql.NullString `db:"cleaned_columns"`
	CleanedRows    sql.NullString `db:"cleaned_rows"`
	RowCount       int            `db:"row_count"`
	CreatedAt      int64          `db:"created_at"`
}

type chartRow struct {
	ID        string `db:"id"`
	RoleID    string `db:"role_id"`
	Payload   string `db:"payload"`
	CreatedAt int64  `db:"created_at"`
}

// Store persists datasets and charts
type Store struct {
	db *sqlx.DB
}

// NewStore creates a store over an open, migrated database
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// SaveDataset inserts a new dataset
func (s *Store) SaveDataset(ctx context.Context, ds *StoredDataset) error {
	columns, err := json.Marshal(ds.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}
	rows, err := json.Marshal(ds.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now()
	}

	query := s.db.Rebind(`INSERT INTO datasets (id, role_id, file_name, column_names, row_data, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		string(ds.ID), string(ds.RoleID), ds.FileName, string(columns), string(rows), len(ds.Rows), ds.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

// SaveCleaned records the cleaned version of a dataset
func (s *Store) SaveCleaned(ctx context.Context, id core.DatasetID, columns []string, rows []analysis.Row) error {
	colJSON, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}
	rowJSON, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	query := s.db.Rebind(`UPDATE datasets SET cleaned_columns = ?, cleaned_rows = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, string(colJSON), string(rowJSON), string(id))
	if err != nil {
		return fmt.Errorf("failed to update dataset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("dataset", string(id))
	}
	return nil
}

// LatestForRole returns the most recent upload for a role
func (s *Store) LatestForRole(ctx context.Context, role core.RoleID) (*StoredDataset, error) {
	query := s.db.Rebind(`SELECT id, role_id, file_name, column_names, row_data, cleaned_columns, cleaned_rows, row_count, created_at
		FROM datasets WHERE role_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`)

	var row datasetRow
	if err := s.db.GetContext(ctx, &row, query, string(role)); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w for role %s", core.ErrDatasetNotFound, role)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return row.toDomain()
}

// SaveChart inserts or replaces a chart by id
func (s *Store) SaveChart(ctx context.Context, role core.RoleID, chart analysis.Chart) error {
	payload, err := json.Marshal(chart)
	if err != nil {
		return fmt.Errorf("failed to marshal chart: %w", err)
	}

	query := s.db.Rebind(`INSERT INTO charts (id, role_id, payload, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET role_id = excluded.role_id, payload = excluded.payload, created_at = excluded.created_at`)
	if _, err := s.db.ExecContext(ctx, query, chart.ID, string(role), string(payload), time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}
	return nil
}

// GetChart returns the last chart saved under id
func (s *Store) GetChart(ctx context.Context, id string) (*analysis.Chart, error) {
	var row chartRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT id, role_id, payload, created_at FROM charts WHERE id = ?`), id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrChartNotFound, id)
		}
		return nil, fmt.Errorf("failed to get chart: %w", err)
	}

	var chart analysis.Chart
	if err := json.Unmarshal([]byte(row.Payload), &chart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chart: %w", err)
	}
	return &chart, nil
}

func (r datasetRow) toDomain() (*StoredDataset, error) {
	ds := &StoredDataset{
		ID:        core.DatasetID(r.ID),
		RoleID:    core.RoleID(r.RoleID),
		FileName:  r.FileName,
		CreatedAt: time.Unix(0, r.CreatedAt),
	}
	if err := json.Unmarshal([]byte(r.ColumnNames), &ds.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}
	if err := json.Unmarshal([]byte(r.RowData), &ds.Rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
	}
	if r.CleanedColumns.Valid {
		if err := json.Unmarshal([]byte(r.CleanedColumns.String), &ds.CleanedColumns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cleaned columns: %w", err)
		}
	}
	if r.CleanedRows.Valid {
		if err := json.Unmarshal([]byte(r.CleanedRows.String), &ds.CleanedRows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cleaned rows: %w", err)
		}
	}
	return ds, nil
}
