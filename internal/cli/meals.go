package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mealbook/internal/diary"
	"github.com/mesh-intelligence/mealbook/internal/sheet"
	"github.com/mesh-intelligence/mealbook/internal/snapshot"
	"github.com/mesh-intelligence/mealbook/internal/sqlite"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

type addOptions struct {
	date        string
	clock       string
	description string
	mealType    string
	source      string
	nutrition   types.Nutrition
	ingredients []string
	file        string
}

func newAddCmd(a *app) *cobra.Command {
	var o addOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a meal",
		Long: `Add a meal from flags, or one or more meals from a JSON file.

Ingredients are given as name:quantity:measurement and may be repeated.

Example:
  mealbook add --date 2025-12-03 --time 08:15 --desc "Oatmeal" --calories 350 \
    --ingredient "Oats:0.5:cup" --source ingredients
  mealbook add --file meals.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := o.records(time.Now())
			if err != nil {
				return err
			}
			return a.withService(func(_ *sqlite.Backend, svc *diary.Service) error {
				added, err := svc.Add(cmd.Context(), records)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), added)
				}
				for _, m := range added {
					fmt.Fprintf(cmd.OutOrStdout(), "added meal %d on %s\n", m.ID, m.Date)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.date, "date", "", "date of the meal (YYYY-MM-DD, default today)")
	f.StringVar(&o.clock, "time", "", "time of the meal (HH:MM, default now)")
	f.StringVar(&o.description, "desc", "", "meal description")
	f.StringVar(&o.mealType, "meal-type", "", "meal type, e.g. breakfast")
	f.StringVar(&o.source, "source", string(types.SourceManual), "source: ingredients, database, manual")
	f.Float64Var(&o.nutrition.Calories, "calories", 0, "calories")
	f.Float64Var(&o.nutrition.Protein, "protein", 0, "protein in grams")
	f.Float64Var(&o.nutrition.Carbs, "carbs", 0, "carbohydrates in grams")
	f.Float64Var(&o.nutrition.Fat, "fat", 0, "fat in grams")
	f.Float64Var(&o.nutrition.Fiber, "fiber", 0, "fiber in grams")
	f.StringArrayVar(&o.ingredients, "ingredient", nil, "ingredient as name:quantity:measurement (repeatable)")
	f.StringVar(&o.file, "file", "", "JSON file holding one meal or an array of meals")
	return cmd
}

// records builds the meals to add from the options.
func (o addOptions) records(now time.Time) ([]types.MealRecord, error) {
	if o.file != "" {
		return readRecordsFile(o.file)
	}
	if o.description == "" {
		return nil, fmt.Errorf("%w: --desc is required", types.ErrInvalidData)
	}

	date := o.date
	if date == "" {
		date = now.Format(types.DateLayout)
	}
	ts, err := diary.Redate(now, date)
	if err != nil {
		return nil, err
	}
	if o.clock != "" {
		ts, err = time.ParseInLocation(types.DateLayout+" 15:04", date+" "+o.clock, now.Location())
		if err != nil {
			return nil, fmt.Errorf("%w: time %q is not HH:MM", types.ErrInvalidData, o.clock)
		}
	}

	ings := make([]types.Ingredient, 0, len(o.ingredients))
	for _, s := range o.ingredients {
		ing, err := parseIngredient(s)
		if err != nil {
			return nil, err
		}
		ings = append(ings, ing)
	}

	return []types.MealRecord{{
		Date:        date,
		Timestamp:   ts,
		Description: o.description,
		MealType:    o.mealType,
		Nutrition:   o.nutrition,
		Source:      types.Source(o.source),
		Ingredients: ings,
	}}, nil
}

func parseIngredient(s string) (types.Ingredient, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return types.Ingredient{}, fmt.Errorf("%w: ingredient %q (expected name:quantity:measurement)", types.ErrInvalidData, s)
	}
	q, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || q < 0 {
		return types.Ingredient{}, fmt.Errorf("%w: ingredient quantity %q", types.ErrInvalidData, parts[1])
	}
	return types.Ingredient{Name: parts[0], Quantity: q, Measurement: parts[2]}, nil
}

// readRecordsFile reads one record or an array of records.
func readRecordsFile(path string) ([]types.MealRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var records []types.MealRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidData, path, err)
		}
		return records, nil
	}
	var rec types.MealRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidData, path, err)
	}
	return []types.MealRecord{rec}, nil
}

func newListCmd(a *app) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "list [date]",
		Short: "List meals for a date or a date range",
		Long: `List prints the meals of one date, or of every date in --start/--end.

Example:
  mealbook list 2025-12-03
  mealbook list --start 2025-12-01 --end 2025-12-31 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				start, end = args[0], args[0]
			}
			b, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer b.Detach()

			c, err := b.MealsBetween(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), c)
			}
			return printCollection(cmd, c)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first date (inclusive)")
	cmd.Flags().StringVar(&end, "end", "", "last date (inclusive)")
	return cmd
}

func printCollection(cmd *cobra.Command, c types.MealsByDate) error {
	out := cmd.OutOrStdout()
	dates := c.Dates()
	if len(dates) == 0 {
		fmt.Fprintln(out, "no meals")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tDESCRIPTION\tCALORIES\tSOURCE")
	for _, d := range dates {
		for _, m := range c[d] {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%g\t%s\n",
				m.ID, m.Date, sheet.FormatTime(m.Timestamp), m.Description, m.Nutrition.Calories, sheet.SourceLabel(m.Source))
		}
	}
	return tw.Flush()
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a date-keyed JSON collection into the store",
		Long: `Import adds every record of a collection file (the format written by
snapshot and migrate --from-file) to the store. Records without a usable id
get a new one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}
			var records []types.MealRecord
			for _, d := range c.Dates() {
				records = append(records, c[d]...)
			}
			return a.withService(func(_ *sqlite.Backend, svc *diary.Service) error {
				added, err := svc.Add(cmd.Context(), records)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]int{"imported": len(added)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d meals\n", len(added))
				return nil
			})
		},
	}
}

func newSnapshotCmd(a *app) *cobra.Command {
	var start, end, out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write the store (or a date range of it) to a JSON collection file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = a.cfg.GetString(cfgKeySnapshotFile)
			}
			b, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer b.Detach()

			c, err := b.MealsBetween(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			if err := snapshot.Save(out, c); err != nil {
				return sysErr(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"file": out, "meals": c.Count()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d meals to %s\n", c.Count(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first date (inclusive)")
	cmd.Flags().StringVar(&end, "end", "", "last date (inclusive)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: snapshot_file from config)")
	return cmd
}
