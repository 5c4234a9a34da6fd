package mapping

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gobuyline/internal/mapping/inbound"
	"github.com/shandysiswandi/gobuyline/internal/mapping/store"
	"github.com/shandysiswandi/gobuyline/internal/mapping/usecase"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkguid"
)

const (
	defaultSessionTTL    = 8 * time.Hour
	defaultSweepInterval = 5 * time.Minute
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
}

// Options configures a standalone mapping usecase.
type Options struct {
	Columns      usecase.Columns
	PreviewLimit int
	AuthEnabled  bool
	Credentials  map[string]string
	SessionID    pkguid.StringID
}

// NewUsecase wires the usecase to a fresh in-memory store.
func NewUsecase(opts Options) (*usecase.Usecase, error) {
	batchID, err := pkguid.NewSnowflake()
	if err != nil {
		return nil, err
	}

	if opts.SessionID == nil {
		opts.SessionID = pkguid.NewUUID()
	}

	return usecase.New(usecase.Dependency{
		Store:        store.NewInMemoryStore(),
		SessionID:    opts.SessionID,
		BatchID:      batchID,
		Columns:      opts.Columns,
		PreviewLimit: opts.PreviewLimit,
		AuthEnabled:  opts.AuthEnabled,
		Credentials:  opts.Credentials,
	}), nil
}

func New(dep Dependency) (func(context.Context) error, error) {
	cfg := dep.Config

	uc, err := NewUsecase(Options{
		Columns: usecase.Columns{
			Code:   cfg.GetString("mapping.columns.code"),
			Name:   cfg.GetString("mapping.columns.name"),
			Lookup: cfg.GetString("mapping.columns.lookup"),
		},
		PreviewLimit: int(cfg.GetInt("mapping.preview_limit")),
		AuthEnabled:  cfg.GetBool("auth.enabled"),
		Credentials:  cfg.GetMap("auth.credentials"),
		SessionID:    dep.ID,
	})
	if err != nil {
		return nil, err
	}

	inbound.RegisterHTTPEndpoint(dep.Router, uc, cfg.GetInt("upload.max_bytes"))

	ttl := cfg.GetDuration("session.ttl")
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	interval := cfg.GetDuration("session.sweep_interval")
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	if dep.Goroutine != nil {
		root := dep.Context
		if root == nil {
			root = context.Background()
		}
		dep.Goroutine.Go(root, func(ctx context.Context) error {
			return uc.SweepIdleSessions(ctx, interval, ttl)
		})
	}

	slog.Info("module mapping initialized", "session_ttl", ttl.String(), "auth_enabled", cfg.GetBool("auth.enabled"))

	return nil, nil
}
