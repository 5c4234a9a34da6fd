package app

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkglog"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkguid"
)

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	configPath string
	config     pkgconfig.Config

	// libraries
	uuid      pkguid.StringID
	goroutine *pkgroutine.Manager

	// server
	router     *pkgrouter.Router
	httpServer *http.Server

	//
	closerFn map[string]func(context.Context) error
}

// New builds the application from the config file at configPath. An empty
// path falls back to the default location.
func New(configPath string) *App {
	pkglog.InitLogging()

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:        ctx,
		cancel:     cancel,
		configPath: configPath,
	}

	app.initConfig()
	app.initLibraries()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
