package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"mito-gallery-service/internal/adapters/secondary/tabular"
	"mito-gallery-service/internal/core/domain"
	ports "mito-gallery-service/internal/core/ports/output"
)

type metadataRepo struct {
	pool  *pgxpool.Pool
	table string
}

// NewMetadataRepository reads the materialization table from Postgres.
// table may be schema-qualified ("public.mito_materialization").
func NewMetadataRepository(pool *pgxpool.Pool, table string) ports.MetadataSource {
	return &metadataRepo{pool: pool, table: table}
}

func (r *metadataRepo) Name() string {
	return "postgres:" + r.table
}

func (r *metadataRepo) identifier() string {
	return pgx.Identifier(strings.Split(r.table, ".")).Sanitize()
}

func (r *metadataRepo) Load(ctx context.Context) ([]domain.Entity, error) {
	// Discover the column names first so the same layout rules apply as for
	// CSV exports of the table.
	shape, err := r.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", r.identifier()))
	if err != nil {
		return nil, &domain.DataLoadError{Source: r.Name(), Err: err}
	}
	fields := shape.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	shape.Close()

	layout, err := tabular.Resolve(r.Name(), header)
	if err != nil {
		return nil, err
	}

	columns := layout.Columns()
	// Re-resolve against the narrowed select list so indices line up.
	layout, err = tabular.Resolve(r.Name(), columns)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", selectList(columns), r.identifier())
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, &domain.DataLoadError{Source: r.Name(), Err: err}
	}
	defer rows.Close()

	var entities []domain.Entity
	row := 0
	for rows.Next() {
		row++
		values := make([]*string, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &domain.DataLoadError{Source: r.Name(), Row: row, Err: err}
		}
		record := make([]string, len(values))
		for i, v := range values {
			if v != nil {
				record[i] = *v
			}
		}
		e, err := layout.Parse(record, row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DataLoadError{Source: r.Name(), Err: err}
	}

	log.WithFields(log.Fields{
		"source":  r.Name(),
		"records": len(entities),
	}).Info("materialization table loaded")

	return entities, nil
}

// selectList quotes columns as given. Quoted identifiers are case-sensitive,
// so the names must keep the case the table was created with.
func selectList(columns []string) string {
	selects := make([]string, len(columns))
	for i, c := range columns {
		selects[i] = pgx.Identifier{c}.Sanitize() + "::text"
	}
	return strings.Join(selects, ", ")
}
