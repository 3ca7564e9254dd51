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

type schoolsImportOptions struct {
	sheet      string
	schemaPath string
	batchSize  int
}

func newSchoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schools",
		Short: "School registry commands",
	}
	cmd.AddCommand(newSchoolsImportCmd())
	return cmd
}

func newSchoolsImportCmd() *cobra.Command {
	var opts schoolsImportOptions

	cmd := &cobra.Command{
		Use:   "import <xlsx>",
		Short: "Load the school registry workbook, keyed on the administrative code",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchoolsImport(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Worksheet holding the registry (default: first sheet)")
	cmd.Flags().StringVar(&opts.schemaPath, "schema", "", "YAML file overriding table descriptors")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Records per chunk transaction (default: IMPORT_BATCH_SIZE)")
	return cmd
}

func runSchoolsImport(ctx context.Context, out io.Writer, path string, opts schoolsImportOptions) error {
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

	log := commandLogger(cfg, "schools-import")
	pool, err := connectDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)
	ctx = composables.WithLogger(ctx, log)

	metrics := services.NewMetrics()
	svc := services.NewSchoolsService(persistence.NewUpsertWriter(log), schema.Schools, metrics, log)
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
		*services.SchoolsSummary
	}{Status: status, SchoolsSummary: summary}
	if err := writeJSONLine(out, line); err != nil {
		return err
	}
	return classify(runErr)
}
