package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/gobuyline/internal/mapping/entity"
	"github.com/shandysiswandi/gobuyline/internal/mapping/tabular"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgerror"
)

// Ingest upserts a mapping upload into the session mapping.
//
// The upload must carry the code and name columns; otherwise nothing is
// written. Rows without a code are skipped.
func (u *Usecase) Ingest(ctx context.Context, sessionID string, table entity.Table) (IngestResult, error) {
	if u.store == nil || u.batchID == nil {
		return IngestResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	codeIdx, nameIdx, err := mappingColumns(table, u.columns)
	if err != nil {
		return IngestResult{}, mapDomainErr(err)
	}

	batchID := u.batchID.Generate()
	entries := buildEntries(table, codeIdx, nameIdx, batchID, u.clock.Now().Unix())

	mapping, err := u.store.UpdateMapping(ctx, sessionID, func(current *entity.Mapping) (*entity.Mapping, error) {
		return current.Merge(entries), nil
	})
	if err != nil {
		return IngestResult{}, mapStoreErr(err)
	}

	result := IngestResult{
		BatchID:     batchID,
		RowsRead:    len(table.Rows),
		RowsDropped: len(table.Rows) - len(entries),
		Upserted:    len(entries),
		MappingSize: mapping.Len(),
	}

	slog.InfoContext(ctx, "mapping ingested",
		"batch_id", batchID,
		"rows_read", result.RowsRead,
		"rows_dropped", result.RowsDropped,
		"mapping_size", result.MappingSize,
	)

	return result, nil
}

// Mapping returns the first limit entries of the session mapping.
func (u *Usecase) Mapping(ctx context.Context, sessionID string, limit int) (MappingResult, error) {
	if limit < 1 {
		limit = u.previewLimit
	}

	mapping, err := u.store.Mapping(ctx, sessionID)
	if err != nil {
		return MappingResult{}, mapStoreErr(err)
	}

	entries := mapping.Entries()
	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return MappingResult{Entries: entries, Total: total}, nil
}

// ExportMapping renders the session mapping as a workbook.
func (u *Usecase) ExportMapping(ctx context.Context, sessionID string) (FileResult, error) {
	mapping, err := u.store.Mapping(ctx, sessionID)
	if err != nil {
		return FileResult{}, mapStoreErr(err)
	}
	if mapping.Len() == 0 {
		return FileResult{}, mapDomainErr(entity.ErrEmptyMapping)
	}

	data, err := tabular.Encode(mappingTable(mapping, u.columns), SheetMasterMapping)
	if err != nil {
		return FileResult{}, pkgerror.NewServer(err)
	}

	return FileResult{
		FileName:    FileMasterMapping,
		ContentType: tabular.ContentTypeWorkbook,
		Data:        data,
	}, nil
}

func mappingColumns(table entity.Table, columns Columns) (int, int, error) {
	codeIdx := table.ColumnIndex(columns.Code)
	nameIdx := table.ColumnIndex(columns.Name)

	var missing []string
	if codeIdx < 0 {
		missing = append(missing, columns.Code)
	}
	if nameIdx < 0 {
		missing = append(missing, columns.Name)
	}
	if len(missing) > 0 {
		return 0, 0, &entity.SchemaError{
			Required: []string{columns.Code, columns.Name},
			Missing:  missing,
		}
	}

	return codeIdx, nameIdx, nil
}

func buildEntries(table entity.Table, codeIdx, nameIdx int, batchID, now int64) []entity.MappingEntry {
	entries := make([]entity.MappingEntry, 0, len(table.Rows))
	for i := range table.Rows {
		raw := table.Cell(i, codeIdx)
		code, ok := entity.NormalizeCode(raw)
		if !ok {
			continue
		}

		entries = append(entries, entity.MappingEntry{
			Code:      code,
			RawCode:   raw,
			Name:      cellText(table.Cell(i, nameIdx)),
			BatchID:   batchID,
			UpdatedAt: now,
		})
	}
	return entries
}

func mappingTable(mapping *entity.Mapping, columns Columns) entity.Table {
	entries := mapping.Entries()
	table := entity.Table{
		Columns: []string{ColumnCodeNorm, columns.Code, columns.Name},
		Rows:    make([][]any, 0, len(entries)),
	}
	for _, e := range entries {
		var name any
		if e.Name != "" {
			name = e.Name
		}
		table.Rows = append(table.Rows, []any{e.Code, e.RawCode, name})
	}
	return table
}

func cellText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
