// Package export renders meal collections into xlsx workbooks, one sheet
// per date, appending to an existing workbook without duplicating dates.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/mealbook/internal/fsutil"
	"github.com/mesh-intelligence/mealbook/internal/ids"
	"github.com/mesh-intelligence/mealbook/internal/sheet"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// DefaultDir is the export directory used when none is configured.
const DefaultDir = "trackers"

// Request selects what to export. Dates outside [StartDate, EndDate] are
// ignored; either bound may be empty. ExistingWorkbookPath must resolve to a
// file inside the export directory.
type Request struct {
	MealsByDate          types.MealsByDate `json:"mealsByDate"`
	StartDate            string            `json:"startDate,omitempty"`
	EndDate              string            `json:"endDate,omitempty"`
	Filename             string            `json:"filename,omitempty"`
	ExistingWorkbookPath string            `json:"existingWorkbookPath,omitempty"`
}

// Result describes the workbook after an export.
type Result struct {
	Success               bool     `json:"success"`
	Message               string   `json:"message,omitempty"`
	Filename              string   `json:"filename"`
	FilePath              string   `json:"filePath"`
	TotalSheets           int      `json:"totalSheets"`
	TotalMeals            int      `json:"totalMeals"`
	DuplicateDatesSkipped int      `json:"duplicateDatesSkipped"`
	SkippedDates          []string `json:"skippedDates"`
}

// FilesystemError reports a failure creating the export directory or
// reading and writing the workbook.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Exporter writes workbooks into Dir. Exports are serialized.
type Exporter struct {
	mu  sync.Mutex
	dir string
	log *zap.Logger
	now func() time.Time
}

// New returns an Exporter writing into dir (DefaultDir when empty).
func New(dir string, log *zap.Logger) *Exporter {
	if dir == "" {
		dir = DefaultDir
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{dir: dir, log: log, now: time.Now}
}

// Dir returns the export directory.
func (e *Exporter) Dir() string { return e.dir }

// Export writes one sheet per new date in the request.
//
// Nothing to write and no existing workbook yields a Result with Success
// false and no error. An existing workbook whose sheets already cover every
// date yields Success true with zero new sheets, and the file is left as it
// was. Errors are returned for invalid input and for filesystem failures.
func (e *Exporter) Export(req Request) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := req.MealsByDate.Normalize()
	if err := c.Validate(); err != nil {
		return Result{}, err
	}
	dates, err := c.InRange(req.StartDate, req.EndDate)
	if err != nil {
		return Result{}, err
	}

	path, name, err := e.target(req, dates)
	if err != nil {
		return Result{}, err
	}
	res := Result{Filename: name, FilePath: path, SkippedDates: []string{}}
	if path == "" {
		res.Message = types.ErrNothingToExport.Error()
		return res, nil
	}
	log := e.log.With(zap.String("operation_id", ids.OperationID()), zap.String("file", path))

	exists, err := fsutil.Exists(path)
	if err != nil {
		return res, &FilesystemError{Op: "stat", Path: path, Err: err}
	}

	var f *excelize.File
	var existing []string
	if exists {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return res, &FilesystemError{Op: "open", Path: path, Err: err}
		}
		existing = f.GetSheetList()
	} else {
		f = excelize.NewFile()
	}
	defer f.Close()

	plan, err := sheet.NewPlan(c, req.StartDate, req.EndDate, existing)
	if err != nil {
		return res, err
	}
	res.SkippedDates = plan.Skipped
	res.DuplicateDatesSkipped = len(plan.Skipped)
	for _, d := range plan.Skipped {
		log.Info("sheet already exists, skipping", zap.String("date", d))
	}

	if len(plan.Dates) == 0 {
		if !exists {
			res.Message = types.ErrNothingToExport.Error()
			log.Warn("nothing to export")
			return res, nil
		}
		res.Success = true
		res.TotalSheets = len(existing)
		res.Message = "no new dates to export"
		return res, nil
	}

	days := make([]sheet.Day, 0, len(plan.Dates))
	for _, d := range plan.Dates {
		day, err := sheet.Build(d, c[d])
		if err != nil {
			return res, err
		}
		days = append(days, day)
		res.TotalMeals += day.Meals
	}

	if err := render(f, days, !exists, e.now()); err != nil {
		return res, fmt.Errorf("rendering %s: %w", name, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return res, &FilesystemError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	if err := fsutil.WriteFile(path, 0o644, func(w io.Writer) error {
		return f.Write(w)
	}); err != nil {
		return res, &FilesystemError{Op: "write", Path: path, Err: err}
	}

	res.Success = true
	res.TotalSheets = len(f.GetSheetList())
	res.Message = fmt.Sprintf("exported %d meals across %d sheets", res.TotalMeals, len(days))
	log.Info("exported workbook",
		zap.Int("new_sheets", len(days)),
		zap.Int("meals", res.TotalMeals),
		zap.Int("skipped", res.DuplicateDatesSkipped),
		zap.Int("total_sheets", res.TotalSheets))
	return res, nil
}

// target resolves the workbook path and file name. A relative
// ExistingWorkbookPath is taken from the export directory, and the result
// must stay inside it. Otherwise the file goes into the export directory.
func (e *Exporter) target(req Request, dates []string) (path, name string, err error) {
	if req.ExistingWorkbookPath != "" {
		path, err = e.confine(req.ExistingWorkbookPath)
		if err != nil {
			return "", "", err
		}
		return path, filepath.Base(path), nil
	}
	name = sheet.WorkbookName(req.Filename, req.StartDate, dates)
	if name == "" {
		return "", "", nil
	}
	return filepath.Join(e.dir, name), name, nil
}

// confine resolves p against the export directory and rejects anything that
// lands outside it.
func (e *Exporter) confine(p string) (string, error) {
	dir, err := filepath.Abs(e.dir)
	if err != nil {
		return "", &FilesystemError{Op: "resolve", Path: e.dir, Err: err}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: workbook %q is outside the export directory", types.ErrInvalidData, p)
	}
	return p, nil
}

// IsNothingToExport reports whether res failed because no dates were left.
func IsNothingToExport(res Result) bool {
	return !res.Success && res.Message == types.ErrNothingToExport.Error()
}
