package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/mealbook/internal/diary"
	"github.com/mesh-intelligence/mealbook/internal/export"
	"github.com/mesh-intelligence/mealbook/internal/ids"
	"github.com/mesh-intelligence/mealbook/internal/snapshot"
	"github.com/mesh-intelligence/mealbook/internal/sqlite"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// offlineFlags switch a command from the store to a collection file.
type offlineFlags struct {
	fromFile string
	out      string
	export   bool
}

func (o *offlineFlags) register(cmd *cobra.Command, withExport bool) {
	cmd.Flags().StringVar(&o.fromFile, "from-file", "", "operate on a JSON collection file instead of the store")
	cmd.Flags().StringVar(&o.out, "snapshot", "", "with --from-file, where to write the result (default: snapshot_file from config)")
	if withExport {
		cmd.Flags().BoolVar(&o.export, "export", false, "export the target date to a workbook afterwards")
	}
}

// offlineResult is printed for --from-file runs.
type offlineResult struct {
	OperationID string         `json:"operationId"`
	Op          string         `json:"op"`
	Count       int            `json:"count"`
	Snapshot    string         `json:"snapshot"`
	Final       map[string]int `json:"final"`
	Export      *export.Result `json:"export,omitempty"`
}

// runOffline loads the collection file, applies fn, and saves the result.
func (a *app) runOffline(cmd *cobra.Command, o offlineFlags, op string, dates []string,
	fn func(c types.MealsByDate, alloc ids.Allocator) (types.MealsByDate, int, error)) (offlineResult, types.MealsByDate, error) {
	res := offlineResult{OperationID: ids.OperationID(), Op: op, Final: map[string]int{}}
	c, err := snapshot.Load(o.fromFile)
	if err != nil {
		return res, nil, err
	}
	alloc, err := a.offlineAllocator()
	if err != nil {
		return res, nil, err
	}
	out, n, err := fn(c, alloc)
	if err != nil {
		return res, nil, err
	}

	res.Count = n
	res.Snapshot = o.out
	if res.Snapshot == "" {
		res.Snapshot = a.cfg.GetString(cfgKeySnapshotFile)
	}
	if err := snapshot.Save(res.Snapshot, out); err != nil {
		return res, nil, sysErr(err)
	}
	for _, d := range dates {
		res.Final[d] = len(out[d])
	}
	a.log.Info("offline operation done",
		zap.String("op", op), zap.String("operation_id", res.OperationID),
		zap.Int("count", n), zap.String("snapshot", res.Snapshot))
	return res, out, nil
}

// exportDate writes one date of c to its month workbook.
func (a *app) exportDate(c types.MealsByDate, date string) (export.Result, error) {
	e, err := a.exporter()
	if err != nil {
		return export.Result{}, err
	}
	return e.Export(export.Request{MealsByDate: c, StartDate: date, EndDate: date})
}

func (a *app) printOffline(cmd *cobra.Command, res offlineResult) error {
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), res)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d meals, result written to %s\n", res.Op, res.Count, res.Snapshot)
	if res.Export != nil {
		printExportSummary(cmd, *res.Export)
	}
	return nil
}

func newMigrateCmd(a *app) *cobra.Command {
	var o offlineFlags
	cmd := &cobra.Command{
		Use:   "migrate <source-date> <target-date>",
		Short: "Move every meal of one date to another date",
		Long: `Migrate moves the meals of source-date to target-date. Each meal keeps its
time of day and gets a new id; the source date ends up empty.

Against the store, the move is a single transaction. With --from-file the
collection file is migrated with time-derived ids and written to --snapshot.

Example:
  mealbook migrate 2024-12-04 2025-12-03
  mealbook migrate 2024-12-04 2025-12-03 --from-file meals.json --export`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target := args[0], args[1]
			if o.fromFile != "" {
				res, out, err := a.runOffline(cmd, o, diary.OpMigrate, []string{source, target},
					func(c types.MealsByDate, alloc ids.Allocator) (types.MealsByDate, int, error) {
						return diary.Migrate(c, source, target, alloc)
					})
				if err != nil {
					return err
				}
				if o.export && res.Count > 0 {
					er, err := a.exportDate(out, target)
					if err != nil {
						return err
					}
					res.Export = &er
				}
				return a.printOffline(cmd, res)
			}

			return a.withService(func(b *sqlite.Backend, svc *diary.Service) error {
				res, err := svc.Migrate(cmd.Context(), source, target)
				if err != nil {
					if res.Partial() {
						a.log.Error("migration left partial state; check both dates before re-running",
							zap.Int("written", res.Written), zap.Int("removed", res.Removed))
					}
					return err
				}
				var er *export.Result
				if o.export && res.Migrated > 0 {
					meals, err := b.GetMealsByDate(cmd.Context(), target)
					if err != nil {
						return sysErr(err)
					}
					r, err := a.exportDate(types.MealsByDate{target: meals}, target)
					if err != nil {
						return err
					}
					er = &r
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), struct {
						diary.MigrateResult
						Export *export.Result `json:"export,omitempty"`
					}{res, er})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %d meals from %s to %s\n", res.Migrated, source, target)
				if er != nil {
					printExportSummary(cmd, *er)
				}
				return nil
			})
		},
	}
	o.register(cmd, true)
	return cmd
}

func newCopyCmd(a *app) *cobra.Command {
	var o offlineFlags
	cmd := &cobra.Command{
		Use:   "copy <source-date> <target-date>",
		Short: "Copy every meal of one date into another date",
		Long: `Copy duplicates the meals of source-date into target-date with new ids and
the current time as timestamp. The source date is not changed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target := args[0], args[1]
			if o.fromFile != "" {
				res, _, err := a.runOffline(cmd, o, diary.OpCopy, []string{source, target},
					func(c types.MealsByDate, alloc ids.Allocator) (types.MealsByDate, int, error) {
						return diary.Copy(c, source, target, alloc, time.Now())
					})
				if err != nil {
					return err
				}
				return a.printOffline(cmd, res)
			}

			return a.withService(func(_ *sqlite.Backend, svc *diary.Service) error {
				res, err := svc.Copy(cmd.Context(), source, target)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "copied %d meals from %s to %s\n", res.Copied, source, target)
				return nil
			})
		},
	}
	o.register(cmd, false)
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var o offlineFlags
	cmd := &cobra.Command{
		Use:   "clear <date>",
		Short: "Delete every meal of a date",
		Long: `Clear deletes the meals of date one at a time. A meal that cannot be deleted
is reported and the rest are still deleted; the command then exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := args[0]
			if o.fromFile != "" {
				res, _, err := a.runOffline(cmd, o, diary.OpClear, []string{date},
					func(c types.MealsByDate, _ ids.Allocator) (types.MealsByDate, int, error) {
						return diary.Clear(c, date)
					})
				if err != nil {
					return err
				}
				return a.printOffline(cmd, res)
			}

			return a.withService(func(_ *sqlite.Backend, svc *diary.Service) error {
				res, err := svc.Clear(cmd.Context(), date)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					if err := printJSON(cmd.OutOrStdout(), res); err != nil {
						return err
					}
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "cleared %d meals from %s\n", res.Deleted, date)
					for _, f := range res.Failures {
						fmt.Fprintf(cmd.OutOrStdout(), "  failed to delete meal %d: %s\n", f.ID, f.Error)
					}
				}
				if res.Partial() {
					return &types.StoreError{Op: "clear", ID: res.Failures[0].ID,
						Err: fmt.Errorf("%d of %d deletions failed", len(res.Failures), len(res.Failures)+res.Deleted)}
				}
				return nil
			})
		},
	}
	o.register(cmd, false)
	return cmd
}

// stepsFile is the document read by apply. A bare list of steps is also
// accepted.
type stepsFile struct {
	Steps []diary.Step `yaml:"steps"`
}

func readSteps(path string) ([]diary.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc stepsFile
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Steps) > 0 {
		return doc.Steps, nil
	}
	var steps []diary.Step
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidData, path, err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: %s has no steps", types.ErrInvalidData, path)
	}
	return steps, nil
}

func newApplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <steps-file>",
		Short: "Run a sequence of migrate, copy and clear steps",
		Long: `Apply runs the steps of a YAML or JSON file in order and stops at the first
failure. Order matters: copying into a date and then clearing it is not the
same as clearing it first.

Example steps file:
  steps:
    - {op: copy, source: 2025-12-01, target: 2025-12-02}
    - {op: copy, source: 2025-12-02, target: 2025-12-03}
    - {op: clear, date: 2025-12-03}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := readSteps(args[0])
			if err != nil {
				return err
			}
			return a.withService(func(_ *sqlite.Backend, svc *diary.Service) error {
				res, runErr := svc.Apply(cmd.Context(), steps)
				if a.flags.jsonMode {
					if err := printJSON(cmd.OutOrStdout(), res); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "ran %d of %d steps\n", len(res.Steps), len(steps))
					for _, d := range sortedKeys(res.Final) {
						fmt.Fprintf(out, "  %s: %d meals\n", d, res.Final[d])
					}
				}
				return runErr
			})
		},
	}
}
