package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shandysiswandi/gobuyline/internal/mapping"
	"github.com/shandysiswandi/gobuyline/internal/mapping/entity"
	"github.com/shandysiswandi/gobuyline/internal/mapping/tabular"
	"github.com/shandysiswandi/gobuyline/internal/mapping/usecase"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkglog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// NewCommand returns the root command. Running it without a subcommand
// starts the HTTP server.
func NewCommand() *cobra.Command {
	var configPath string

	serve := func(cmd *cobra.Command, _ []string) error {
		application := New(configPath)
		wait := application.Start()
		<-wait

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		application.Stop(ctx)
		return nil
	}

	root := &cobra.Command{
		Use:          "gobuyline",
		Short:        "Map buy line codes in data files to vendor names",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file (default /config/config.yaml, or ./config/config.yaml when LOCAL=true)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  serve,
	})
	root.AddCommand(newApplyCommand())

	return root
}

type applyOptions struct {
	mappingFiles  []string
	dataFile      string
	outFile       string
	exportMapping string
	columns       usecase.Columns
}

func newApplyCommand() *cobra.Command {
	var opts applyOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply mapping files to a data file and write the result workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.mappingFiles, "mapping", nil, "mapping file, repeat to merge several in order (required)")
	cmd.Flags().StringVar(&opts.dataFile, "data", "", "data file to rewrite (required)")
	cmd.Flags().StringVar(&opts.outFile, "out", usecase.FileUpdatedData, "output workbook path")
	cmd.Flags().StringVar(&opts.exportMapping, "export-mapping", "", "also write the merged mapping to this workbook path")
	cmd.Flags().StringVar(&opts.columns.Code, "code-column", usecase.DefaultCodeColumn, "code column in mapping files")
	cmd.Flags().StringVar(&opts.columns.Name, "name-column", usecase.DefaultNameColumn, "name column in mapping files")
	cmd.Flags().StringVar(&opts.columns.Lookup, "lookup-column", usecase.DefaultLookupColumn, "column of the data file to rewrite")

	_ = cmd.MarkFlagRequired("mapping")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runApply(ctx context.Context, opts applyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pkglog.InitLogging()

	uc, err := mapping.NewUsecase(mapping.Options{Columns: opts.columns})
	if err != nil {
		return err
	}

	session, err := uc.Login(ctx, "cli", "")
	if err != nil {
		return err
	}
	defer func() { _ = uc.Logout(ctx, session.SessionID) }()

	for _, path := range opts.mappingFiles {
		table, err := readTable(path)
		if err != nil {
			return err
		}

		result, err := uc.Ingest(ctx, session.SessionID, table)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		slog.InfoContext(ctx, "mapping file merged", "file", path, "upserted", result.Upserted, "mapping_size", result.MappingSize)
	}

	data, err := readTable(opts.dataFile)
	if err != nil {
		return err
	}

	file, err := uc.ApplyWorkbook(ctx, session.SessionID, data, "")
	if err != nil {
		return fmt.Errorf("%s: %w", opts.dataFile, err)
	}
	if err := os.WriteFile(opts.outFile, file.Data, 0o600); err != nil {
		return err
	}
	slog.InfoContext(ctx, "updated data written", "file", opts.outFile, "matched", file.Matched, "unmatched", file.Unmatched)

	if opts.exportMapping == "" {
		return nil
	}

	export, err := uc.ExportMapping(ctx, session.SessionID)
	if err != nil {
		return err
	}

	return os.WriteFile(opts.exportMapping, export.Data, 0o600)
}

func readTable(path string) (entity.Table, error) {
	format := tabular.DetectFormat(filepath.Base(path), "")
	if format == tabular.FormatUnknown {
		return entity.Table{}, fmt.Errorf("%s: %w", path, tabular.ErrUnsupportedFormat)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return entity.Table{}, err
	}
	defer f.Close()

	table, err := tabular.Decode(format, f)
	if err != nil {
		return entity.Table{}, fmt.Errorf("%s: %w", path, err)
	}

	return table, nil
}
