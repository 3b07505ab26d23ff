// Package input loads the area groups a run measures.
package input

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mvdvldn03/ATLPublicTransit/models"
)

// ErrNoGroups is returned when a table yields no area groups.
var ErrNoGroups = errors.New("input: no area groups")

// ReadGroups reads a CSV table with a header row and parses every cell of
// column into an AreaGroup. Rows whose cell holds no area name are skipped.
func ReadGroups(r io.Reader, column string) ([]models.AreaGroup, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoGroups
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, name := range header {
		// Exported tables often carry a UTF-8 BOM on the first header cell.
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("input: column %q not found in header %v", column, header)
	}

	var groups []models.AreaGroup
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if col >= len(record) {
			continue
		}
		group := models.ParseAreaGroup(record[col])
		if len(group.Areas) == 0 {
			continue
		}
		groups = append(groups, group)
	}

	if len(groups) == 0 {
		return nil, ErrNoGroups
	}
	return groups, nil
}

// LoadGroups reads groups from a local CSV file or, for http(s) sources,
// downloads the table with fetcher first. A nil fetcher uses NewFetcher
// defaults.
func LoadGroups(ctx context.Context, source, column string, fetcher *Fetcher) ([]models.AreaGroup, error) {
	if isRemote(source) {
		if fetcher == nil {
			fetcher = NewFetcher(FetcherConfig{})
		}
		body, err := fetcher.Fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		return ReadGroups(bytes.NewReader(body), column)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return ReadGroups(f, column)
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
