package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"mito-gallery-service/internal/adapters/secondary/tabular"
	"mito-gallery-service/internal/core/domain"
	ports "mito-gallery-service/internal/core/ports/output"
)

type csvSource struct {
	path string
}

// NewCSVSource reads the materialization table from a CSV file with a
// header row.
func NewCSVSource(path string) ports.MetadataSource {
	return &csvSource{path: path}
}

func (s *csvSource) Name() string {
	return s.path
}

func (s *csvSource) Load(ctx context.Context) ([]domain.Entity, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &domain.DataLoadError{Source: s.path, Err: err}
	}
	defer f.Close()

	return Read(ctx, s.path, f)
}

// Read parses CSV content. name is used in errors.
func Read(ctx context.Context, name string, r io.Reader) ([]domain.Entity, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.DataLoadError{Source: name, Err: fmt.Errorf("empty file")}
		}
		return nil, &domain.DataLoadError{Source: name, Err: err}
	}
	layout, err := tabular.Resolve(name, header)
	if err != nil {
		return nil, err
	}

	var entities []domain.Entity
	for row := 1; ; row++ {
		if row%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.DataLoadError{Source: name, Row: row, Err: err}
		}
		e, err := layout.Parse(record, row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	log.WithFields(log.Fields{
		"source":  name,
		"records": len(entities),
	}).Info("materialization table loaded")

	return entities, nil
}
