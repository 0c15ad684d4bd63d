package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/mealbook/internal/diary"
	"github.com/mesh-intelligence/mealbook/internal/export"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

type datePair struct {
	SourceDate string `json:"sourceDate"`
	TargetDate string `json:"targetDate"`
}

type applyRequest struct {
	Steps []diary.Step `json:"steps"`
}

// errorBody is the JSON shape of every error response. Result carries the
// partial outcome when an operation stopped midway.
type errorBody struct {
	Error  string `json:"error"`
	Result any    `json:"result,omitempty"`
}

func (s *Server) exportExcel(w http.ResponseWriter, r *http.Request) {
	var req export.Request
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if req.MealsByDate == nil {
		rr, ok := s.store.(types.RangeReader)
		if !ok {
			s.fail(w, r, fmt.Errorf("%w: mealsByDate is required", types.ErrInvalidData), nil)
			return
		}
		c, err := rr.MealsBetween(r.Context(), req.StartDate, req.EndDate)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		req.MealsByDate = c
	}

	res, err := s.exporter.Export(req)
	if err != nil {
		s.fail(w, r, err, res)
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) migrate(w http.ResponseWriter, r *http.Request) {
	var req datePair
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	res, err := s.svc.Migrate(r.Context(), req.SourceDate, req.TargetDate)
	if err != nil {
		s.fail(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) copyMeals(w http.ResponseWriter, r *http.Request) {
	var req datePair
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	res, err := s.svc.Copy(r.Context(), req.SourceDate, req.TargetDate)
	if err != nil {
		s.fail(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Clear(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.fail(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	res, err := s.svc.Apply(r.Context(), req.Steps)
	if err != nil {
		s.fail(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) mealsForDate(w http.ResponseWriter, r *http.Request) {
	meals, err := s.store.GetMealsByDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, meals)
}

func (s *Server) listMeals(w http.ResponseWriter, r *http.Request) {
	rr, ok := s.store.(types.RangeReader)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "store cannot list ranges"})
		return
	}
	q := r.URL.Query()
	c, err := rr.MealsBetween(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// addMeals accepts one record or an array of records.
func (s *Server) addMeals(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	br := bufio.NewReader(r.Body)
	var records []types.MealRecord
	if first, err := peekNonSpace(br); err == nil && first == '[' {
		err = json.NewDecoder(br).Decode(&records)
		if err != nil {
			s.fail(w, r, badJSON(err), nil)
			return
		}
	} else {
		var rec types.MealRecord
		if err := json.NewDecoder(br).Decode(&rec); err != nil {
			s.fail(w, r, badJSON(err), nil)
			return
		}
		records = []types.MealRecord{rec}
	}

	added, err := s.svc.Add(r.Context(), records)
	if err != nil {
		s.fail(w, r, err, added)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badJSON(err)
	}
	return nil
}

func badJSON(err error) error {
	return fmt.Errorf("%w: request body: %v", types.ErrInvalidData, err)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case types.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, result any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Result: result})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
