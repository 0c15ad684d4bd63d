package diary

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/mealbook/internal/ids"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// Step operation names.
const (
	OpMigrate = "migrate"
	OpCopy    = "copy"
	OpClear   = "clear"
)

// Step is one primitive in a caller-ordered workflow. Migrate and copy use
// Source and Target; clear uses Date.
type Step struct {
	Op     string `json:"op" yaml:"op"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Date   string `json:"date,omitempty" yaml:"date,omitempty"`
}

// dates returns the date keys the step touches.
func (s Step) dates() []string {
	if s.Op == OpClear {
		return []string{s.Date}
	}
	return []string{s.Source, s.Target}
}

// StepResult holds the outcome of one step. Exactly one of the result
// pointers is set for a step that ran.
type StepResult struct {
	Step    Step           `json:"step"`
	Migrate *MigrateResult `json:"migrate,omitempty"`
	Copy    *CopyResult    `json:"copy,omitempty"`
	Clear   *ClearResult   `json:"clear,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ApplyResult reports a workflow run. Final maps every date touched by a
// step that ran to its record count afterwards.
type ApplyResult struct {
	OperationID string         `json:"operationId"`
	Steps       []StepResult   `json:"steps"`
	Final       map[string]int `json:"final"`
}

// Apply runs steps in order and stops at the first step that fails. Steps
// are not reordered: copying before clearing the same date gives a different
// result than the reverse.
func (s *Service) Apply(ctx context.Context, steps []Step) (ApplyResult, error) {
	res := ApplyResult{OperationID: ids.OperationID(), Final: map[string]int{}}
	log := s.log.With(zap.String("op", "apply"), zap.String("operation_id", res.OperationID))

	touched := map[string]bool{}
	var runErr error
	for i, step := range steps {
		sr := StepResult{Step: step}
		var err error
		switch step.Op {
		case OpMigrate:
			var r MigrateResult
			r, err = s.Migrate(ctx, step.Source, step.Target)
			sr.Migrate = &r
		case OpCopy:
			var r CopyResult
			r, err = s.Copy(ctx, step.Source, step.Target)
			sr.Copy = &r
		case OpClear:
			var r ClearResult
			r, err = s.Clear(ctx, step.Date)
			sr.Clear = &r
		default:
			err = fmt.Errorf("%w: unknown step op %q", types.ErrInvalidData, step.Op)
		}
		if err == nil || sr.Migrate != nil || sr.Copy != nil || sr.Clear != nil {
			for _, d := range step.dates() {
				if _, perr := types.ParseDate(d); perr == nil {
					touched[d] = true
				}
			}
		}
		if err != nil {
			sr.Error = err.Error()
			res.Steps = append(res.Steps, sr)
			log.Warn("step failed, stopping", zap.Int("step", i+1), zap.String("step_op", step.Op), zap.Error(err))
			runErr = fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
			break
		}
		res.Steps = append(res.Steps, sr)
	}

	for d := range touched {
		meals, err := s.store.GetMealsByDate(ctx, d)
		if err != nil {
			if runErr == nil {
				runErr = &types.StoreError{Op: "get", Err: err}
			}
			continue
		}
		res.Final[d] = len(meals)
	}
	log.Info("applied steps", zap.Int("ran", len(res.Steps)), zap.Int("requested", len(steps)))
	return res, runErr
}
