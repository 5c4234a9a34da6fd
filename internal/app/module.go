package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/shandysiswandi/gobuyline/internal/mapping"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.mapping.enabled") {
		closer, err := mapping.New(mapping.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			ID:        a.uuid,
		})
		if err != nil {
			slog.Error("failed to init module mapping", "error", err)
			os.Exit(1)
		}
		if closer != nil {
			if a.closerFn == nil {
				a.closerFn = map[string]func(context.Context) error{}
			}
			a.closerFn["Mapping"] = closer
		}
	}
}
