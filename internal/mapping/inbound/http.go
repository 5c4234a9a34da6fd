package inbound

import (
	"context"

	"github.com/shandysiswandi/gobuyline/internal/mapping/entity"
	"github.com/shandysiswandi/gobuyline/internal/mapping/usecase"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgrouter"
)

type uc interface {
	Login(ctx context.Context, username, password string) (usecase.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Authorize(ctx context.Context, sessionID string) (entity.Session, error)
	Ingest(ctx context.Context, sessionID string, table entity.Table) (usecase.IngestResult, error)
	Mapping(ctx context.Context, sessionID string, limit int) (usecase.MappingResult, error)
	ExportMapping(ctx context.Context, sessionID string) (usecase.FileResult, error)
	Apply(ctx context.Context, sessionID string, table entity.Table, lookupColumn string) (usecase.ApplyResult, error)
	ApplyWorkbook(ctx context.Context, sessionID string, table entity.Table, lookupColumn string) (usecase.FileResult, error)
}

// RegisterHTTPEndpoint mounts the mapping API. Uploads larger than
// maxUploadBytes are rejected; zero or less disables the limit.
func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc, maxUploadBytes int64) {
	end := &HTTPEndpoint{uc: uc, maxUploadBytes: maxUploadBytes}

	r.POST("/sessions", end.Login)
	r.DELETE("/sessions", end.Logout)

	r.POST("/mappings", end.IngestMapping)       // multipart "file" or raw body with ?filename=
	r.GET("/mappings", end.Mapping)              // ?limit=
	r.GET("/mappings/export", end.ExportMapping) // workbook download
	r.POST("/mappings/apply", end.ApplyMapping)  // ?format=json&lookup_column=
}
