package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/heartware/timetable-sync/modules/timetable/infrastructure/persistence"
	"github.com/heartware/timetable-sync/modules/timetable/services"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

type statsOptions struct {
	scope         string
	weekdaySource string
	top           int
	format        string
	schemaPath    string
}

func newStatsCmd() *cobra.Command {
	var opts statsOptions

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report stored timetable totals (read-only)",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.scope, "scope", "", "Education authority code (default: all)")
	cmd.Flags().StringVar(&opts.weekdaySource, "weekday-source", "", "Entries table to report: filename (weekday table) or date_column (date table); default IMPORT_WEEKDAY_SOURCE")
	cmd.Flags().IntVar(&opts.top, "top", services.DefaultTopSchools, "Number of schools listed by entry count")
	cmd.Flags().StringVar(&opts.format, "format", "", "Output format: json|table (default: table on a terminal, json otherwise)")
	cmd.Flags().StringVar(&opts.schemaPath, "schema", "", "YAML file overriding table descriptors")
	return cmd
}

func resolveFormat(format string, out io.Writer) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case formatJSON, formatTable:
		return f, nil
	case "":
		if file, ok := out.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
			return formatTable, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unsupported --format: %s", format)
	}
}

func resolveWeekdaySource(flag, fallback string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(flag))
	if v == "" {
		return fallback, nil
	}
	switch services.WeekdaySource(v) {
	case services.WeekdayFromFileName, services.WeekdayFromDateColumn:
		return v, nil
	default:
		return "", fmt.Errorf("unsupported --weekday-source: %s", flag)
	}
}

func runStats(ctx context.Context, out io.Writer, opts statsOptions) error {
	format, err := resolveFormat(opts.format, out)
	if err != nil {
		return withCode(exitUsage, err)
	}
	if opts.top < 1 {
		return withCode(exitUsage, fmt.Errorf("--top must be positive"))
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
	source, err := resolveWeekdaySource(opts.weekdaySource, cfg.Import.WeekdaySource)
	if err != nil {
		return withCode(exitUsage, err)
	}

	db, err := connectSQLX(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := services.NewStatsService(persistence.NewStatsRepository(db)).Report(ctx,
		statsQuery(schema, source, strings.ToUpper(strings.TrimSpace(opts.scope)), opts.top))
	if err != nil {
		return withCode(exitDB, fmt.Errorf("stats: %w", err))
	}
	if format == formatJSON {
		return writeJSONLine(out, report)
	}
	return renderStats(out, report)
}

func renderStats(w io.Writer, r *services.StatsReport) error {
	scope := r.Scope
	if scope == "" {
		scope = "전체"
	}
	if _, err := fmt.Fprintf(w, "범위: %s  학교 %d  학급 %d  시간표 %d\n\n", scope, r.Totals.Schools, r.Totals.Classes, r.Totals.Entries); err != nil {
		return err
	}

	days := tablewriter.NewTable(w)
	days.Header("요일", "시간표")
	for _, d := range r.ByWeekday {
		if err := days.Append(d.Label, strconv.FormatInt(d.Entries, 10)); err != nil {
			return err
		}
	}
	if err := days.Render(); err != nil {
		return err
	}
	if len(r.Top) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	top := tablewriter.NewTable(w)
	top.Header("학교", "학년", "학급", "시간표")
	for _, s := range r.Top {
		row := []any{
			s.Name,
			strconv.FormatInt(s.Grades, 10),
			strconv.FormatInt(s.Classes, 10),
			strconv.FormatInt(s.Entries, 10),
		}
		if err := top.Append(row...); err != nil {
			return err
		}
	}
	return top.Render()
}
