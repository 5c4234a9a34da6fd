package main

import (
	"os"

	"github.com/shandysiswandi/gobuyline/internal/app"
)

func main() {
	if err := app.NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
