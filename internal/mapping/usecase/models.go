package usecase

import "github.com/shandysiswandi/gobuyline/internal/mapping/entity"

const (
	SheetUpdatedData   = "UpdatedData"
	SheetMasterMapping = "MasterMapping"

	FileUpdatedData   = "file2_manufacturer_mapped.xlsx"
	FileMasterMapping = "master_buyline_vendor_mapping.xlsx"

	ColumnCodeNorm = "code_norm"
)

type LoginResult struct {
	SessionID string
	Username  string
}

type IngestResult struct {
	BatchID     int64
	RowsRead    int
	RowsDropped int
	Upserted    int
	MappingSize int
}

type MappingResult struct {
	Entries []entity.MappingEntry
	Total   int
}

type ApplyResult struct {
	Table     entity.Table
	Matched   int
	Unmatched int
}

// FileResult is a generated download.
type FileResult struct {
	FileName    string
	ContentType string
	Data        []byte

	Matched   int
	Unmatched int
}
