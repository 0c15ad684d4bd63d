package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mealbook/internal/export"
	"github.com/mesh-intelligence/mealbook/internal/snapshot"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

type exportOptions struct {
	start    string
	end      string
	filename string
	workbook string
	fromFile string
}

func newExportCmd(a *app) *cobra.Command {
	var o exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export dates to an xlsx workbook, one sheet per date",
		Long: `Export writes one sheet per date into a workbook in the export directory.
The workbook is named after the month of the first date unless --filename or
--workbook is given. Dates that already have a sheet are skipped, so running
the same export twice leaves the workbook unchanged.

Example:
  mealbook export --start 2025-12-01 --end 2025-12-31
  mealbook export --from-file migrated_meals.json --filename december`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.exportSource(cmd, o)
			if err != nil {
				return err
			}
			e, err := a.exporter()
			if err != nil {
				return err
			}
			res, err := e.Export(export.Request{
				MealsByDate:          c,
				StartDate:            o.start,
				EndDate:              o.end,
				Filename:             o.filename,
				ExistingWorkbookPath: o.workbook,
			})
			if err != nil {
				return err
			}

			if a.flags.jsonMode {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				printExportSummary(cmd, res)
			}
			if export.IsNothingToExport(res) {
				return types.ErrNothingToExport
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.start, "start", "", "first date to export (inclusive)")
	f.StringVar(&o.end, "end", "", "last date to export (inclusive)")
	f.StringVar(&o.filename, "filename", "", "workbook name inside the export directory")
	f.StringVar(&o.workbook, "workbook", "", "workbook inside the export directory to append to")
	f.StringVar(&o.fromFile, "from-file", "", "export a JSON collection file instead of the store")
	return cmd
}

// exportSource reads the meals to export from --from-file or the store.
func (a *app) exportSource(cmd *cobra.Command, o exportOptions) (types.MealsByDate, error) {
	if o.fromFile != "" {
		return snapshot.Load(o.fromFile)
	}
	b, err := a.attachBackend()
	if err != nil {
		return nil, err
	}
	defer b.Detach()
	return b.MealsBetween(cmd.Context(), o.start, o.end)
}

func printExportSummary(cmd *cobra.Command, res export.Result) {
	out := cmd.OutOrStdout()
	if !res.Success {
		fmt.Fprintf(out, "export: %s\n", res.Message)
		return
	}
	fmt.Fprintf(out, "exported %d meals to %s (%d sheets)\n", res.TotalMeals, res.FilePath, res.TotalSheets)
	if res.DuplicateDatesSkipped > 0 {
		fmt.Fprintf(out, "  skipped %d dates already in the workbook: %s\n",
			res.DuplicateDatesSkipped, strings.Join(res.SkippedDates, ", "))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
