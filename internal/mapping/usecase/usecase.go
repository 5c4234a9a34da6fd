package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shandysiswandi/gobuyline/internal/mapping/entity"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgerror"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkguid"
)

const (
	DefaultCodeColumn   = "Buy Line"
	DefaultNameColumn   = "Vendor Name"
	DefaultLookupColumn = "manufacturer_Name"

	DefaultPreviewLimit = 50
)

type Store interface {
	CreateSession(ctx context.Context, meta entity.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
	TouchSession(ctx context.Context, sessionID string, seenAt int64) (entity.Session, error)
	Mapping(ctx context.Context, sessionID string) (*entity.Mapping, error)
	UpdateMapping(ctx context.Context, sessionID string, fn func(current *entity.Mapping) (*entity.Mapping, error)) (*entity.Mapping, error)
	EvictIdle(ctx context.Context, before int64) (int, error)
}

type Clock interface {
	Now() time.Time
}

// Columns names the columns the mapping and data files are matched on.
type Columns struct {
	Code   string
	Name   string
	Lookup string
}

type Dependency struct {
	Store     Store
	Clock     Clock
	SessionID pkguid.StringID
	BatchID   pkguid.NumberID

	Columns      Columns
	PreviewLimit int

	// AuthEnabled gates Login on Credentials (username -> password).
	AuthEnabled bool
	Credentials map[string]string
}

type Usecase struct {
	store     Store
	clock     Clock
	sessionID pkguid.StringID
	batchID   pkguid.NumberID

	columns      Columns
	previewLimit int

	authEnabled bool
	credentials map[string]string
}

func New(dep Dependency) *Usecase {
	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	columns := dep.Columns
	if columns.Code == "" {
		columns.Code = DefaultCodeColumn
	}
	if columns.Name == "" {
		columns.Name = DefaultNameColumn
	}
	if columns.Lookup == "" {
		columns.Lookup = DefaultLookupColumn
	}

	previewLimit := dep.PreviewLimit
	if previewLimit < 1 {
		previewLimit = DefaultPreviewLimit
	}

	return &Usecase{
		store:        dep.Store,
		clock:        clock,
		sessionID:    dep.SessionID,
		batchID:      dep.BatchID,
		columns:      columns,
		previewLimit: previewLimit,
		authEnabled:  dep.AuthEnabled,
		credentials:  dep.Credentials,
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func mapStoreErr(err error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return pkgerror.NewUnauthorized("session expired or unknown, log in again")
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}

// mapDomainErr turns mapping errors into user-facing errors that still match
// the domain error with errors.Is / errors.As.
func mapDomainErr(err error) error {
	var schemaErr *entity.SchemaError
	var columnErr *entity.MissingColumnError

	switch {
	case errors.As(err, &schemaErr), errors.As(err, &columnErr):
		return pkgerror.WrapInvalidInput(err, err.Error())
	case errors.Is(err, entity.ErrEmptyMapping):
		return pkgerror.WrapBusiness(err, err.Error(), pkgerror.CodeConflict)
	default:
		return mapStoreErr(err)
	}
}
