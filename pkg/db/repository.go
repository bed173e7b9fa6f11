package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

const domainMappingColumns = `domain, primary_type, suggested_types, description, revision,
	created, created_by, modified, modified_by`

// Repository provides database access for the domain mapping table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListDomainMappings returns all mappings ordered by domain.
func (r *Repository) ListDomainMappings(ctx context.Context) ([]DomainMapping, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+domainMappingColumns+` FROM domain_mappings ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("%s - ListDomainMappings query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []DomainMapping
	for rows.Next() {
		m, err := scanDomainMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - ListDomainMappings rows: %w", repoLogPrefix, err)
	}
	return out, nil
}

// GetDomainMapping finds a mapping by domain. Returns nil, nil when absent.
func (r *Repository) GetDomainMapping(ctx context.Context, domain string) (*DomainMapping, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+domainMappingColumns+` FROM domain_mappings WHERE domain = $1`, domain)
	m, err := scanDomainMapping(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// UpsertDomainMapping creates or replaces the mapping for a domain.
func (r *Repository) UpsertDomainMapping(ctx context.Context, params UpsertDomainMappingParams) (*DomainMapping, error) {
	slog.Info(fmt.Sprintf("%s - UpsertDomainMapping domain=%s primary=%s", repoLogPrefix, params.Domain, params.PrimaryType))

	suggested := params.SuggestedTypes
	if suggested == nil {
		suggested = []string{}
	}
	userID := params.UserID
	if userID == "" {
		userID = "system"
	}
	now := time.Now().UTC()

	row := r.pool.QueryRow(ctx,
		`INSERT INTO domain_mappings (domain, primary_type, suggested_types, description, created_by, modified_by, created, modified)
		 VALUES ($1, $2, $3, $4, $5, $5, $6, $6)
		 ON CONFLICT (domain) DO UPDATE SET
		   primary_type = $2,
		   suggested_types = $3,
		   description = COALESCE($4, domain_mappings.description),
		   revision = domain_mappings.revision + 1,
		   modified = $6,
		   modified_by = $5
		 RETURNING `+domainMappingColumns,
		params.Domain, nullIfEmpty(params.PrimaryType), suggested, nullIfEmpty(params.Description), userID, now)

	return scanDomainMapping(row)
}

// DeleteDomainMapping removes a mapping. It reports whether a row was deleted.
func (r *Repository) DeleteDomainMapping(ctx context.Context, domain string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM domain_mappings WHERE domain = $1`, domain)
	if err != nil {
		return false, fmt.Errorf("%s - DeleteDomainMapping failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanDomainMapping(row pgx.Row) (*DomainMapping, error) {
	var m DomainMapping
	err := row.Scan(
		&m.Domain, &m.PrimaryType, &m.SuggestedTypes, &m.Description, &m.Revision,
		&m.Created, &m.CreatedBy, &m.Modified, &m.ModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s - scan domain mapping: %w", repoLogPrefix, err)
	}
	if m.SuggestedTypes == nil {
		m.SuggestedTypes = []string{}
	}
	return &m, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
