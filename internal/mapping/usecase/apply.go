package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/gobuyline/internal/mapping/entity"
	"github.com/shandysiswandi/gobuyline/internal/mapping/tabular"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgerror"
)

// Apply replaces the lookup column of every row whose code is in the session
// mapping with the mapped name. Rows without a match keep their original
// value; no rows are added or removed. An empty lookupColumn uses the
// configured default.
func (u *Usecase) Apply(ctx context.Context, sessionID string, table entity.Table, lookupColumn string) (ApplyResult, error) {
	if lookupColumn == "" {
		lookupColumn = u.columns.Lookup
	}

	col := table.ColumnIndex(lookupColumn)
	if col < 0 {
		return ApplyResult{}, mapDomainErr(&entity.MissingColumnError{Column: lookupColumn})
	}

	mapping, err := u.store.Mapping(ctx, sessionID)
	if err != nil {
		return ApplyResult{}, mapStoreErr(err)
	}
	if mapping.Len() == 0 {
		return ApplyResult{}, mapDomainErr(entity.ErrEmptyMapping)
	}

	result := rewrite(table, col, mapping)

	slog.InfoContext(ctx, "mapping applied",
		"rows", len(result.Table.Rows),
		"matched", result.Matched,
		"unmatched", result.Unmatched,
	)

	return result, nil
}

// ApplyWorkbook runs Apply and renders the result as a workbook.
func (u *Usecase) ApplyWorkbook(ctx context.Context, sessionID string, table entity.Table, lookupColumn string) (FileResult, error) {
	result, err := u.Apply(ctx, sessionID, table, lookupColumn)
	if err != nil {
		return FileResult{}, err
	}

	data, err := tabular.Encode(result.Table, SheetUpdatedData)
	if err != nil {
		return FileResult{}, pkgerror.NewServer(err)
	}

	return FileResult{
		FileName:    FileUpdatedData,
		ContentType: tabular.ContentTypeWorkbook,
		Data:        data,
		Matched:     result.Matched,
		Unmatched:   result.Unmatched,
	}, nil
}

// rewrite is a left outer join of table on mapping by normalized code.
func rewrite(table entity.Table, col int, mapping *entity.Mapping) ApplyResult {
	out := table.Clone()
	result := ApplyResult{}

	for _, row := range out.Rows {
		if col >= len(row) {
			result.Unmatched++
			continue
		}

		code, ok := entity.NormalizeCode(row[col])
		if !ok {
			result.Unmatched++
			continue
		}

		entry, found := mapping.Lookup(code)
		if !found || entry.Name == "" {
			result.Unmatched++
			continue
		}

		row[col] = entry.Name
		result.Matched++
	}

	result.Table = out
	return result
}
