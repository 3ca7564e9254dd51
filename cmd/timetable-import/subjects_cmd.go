package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/heartware/timetable-sync/modules/timetable/infrastructure/persistence"
	"github.com/heartware/timetable-sync/modules/timetable/services"
	"github.com/heartware/timetable-sync/pkg/composables"
)

type subjectsImportOptions struct {
	sheet      string
	schemaPath string
	batchSize  int
}

func newSubjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "Subject catalog commands",
	}
	cmd.AddCommand(newSubjectsImportCmd())
	return cmd
}

func newSubjectsImportCmd() *cobra.Command {
	var opts subjectsImportOptions

	cmd := &cobra.Command{
		Use:   "import <xlsx>",
		Short: "Load the subject catalog workbook",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubjectsImport(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.sheet, "sheet", services.DefaultCatalogSheet, "Worksheet holding the catalog")
	cmd.Flags().StringVar(&opts.schemaPath, "schema", "", "YAML file overriding table descriptors")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Records per chunk transaction (default: IMPORT_BATCH_SIZE)")
	return cmd
}

func runSubjectsImport(ctx context.Context, out io.Writer, path string, opts subjectsImportOptions) error {
	if opts.batchSize < 0 {
		return withCode(exitUsage, fmt.Errorf("--batch-size must not be negative"))
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer cfg.Unload()
	schema, err := loadSchema(opts.schemaPath)
	if err != nil {
		return err
	}
	batch := cfg.Import.BatchSize
	if opts.batchSize > 0 {
		batch = opts.batchSize
	}

	log := commandLogger(cfg, "subjects-import")
	pool, err := connectDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)
	ctx = composables.WithLogger(ctx, log)

	metrics := services.NewMetrics()
	svc := services.NewCatalogService(persistence.NewUpsertWriter(log), schema.Subjects, metrics, log)
	summary, runErr := svc.Import(ctx, path, opts.sheet, services.WriteOptions{
		BatchSize: batch,
		OnError:   services.ChunkPolicy(cfg.Import.OnChunkError),
	})
	writeMetrics(log, metrics, cfg.MetricsTextfile)

	status := "ok"
	if runErr != nil {
		status = "failed"
	}
	line := struct {
		Status string `json:"status"`
		*services.CatalogSummary
	}{Status: status, CatalogSummary: summary}
	if err := writeJSONLine(out, line); err != nil {
		return err
	}
	return classify(runErr)
}
