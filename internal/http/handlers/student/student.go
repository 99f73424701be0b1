// Package student contains all HTTP handlers related to the Student resource.
//
// HANDLER PATTERN USED HERE - THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// Each exported function receives its dependency (the roster) once at
// startup and returns the func(http.ResponseWriter, *http.Request) the
// router needs. The returned closure runs on every request.
//
//	mux.HandleFunc("POST /api/students", student.New(roster))
package student

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/skillset-api/internal/http/middleware"
	"github.com/aanand-mishra/skillset-api/internal/types"
	"github.com/aanand-mishra/skillset-api/internal/utils/response"
)

// maxBodyBytes caps request bodies; a student record is a few hundred bytes.
const maxBodyBytes = 1 << 20

// Roster is the part of roster.Repository the handlers use.
type Roster interface {
	Create(ctx context.Context, c types.Candidate) (types.Student, error)
	DeleteByRollNumber(ctx context.Context, rollNumber int64) (types.Student, error)
	UpdateSkills(ctx context.Context, rollNumber int64, skills []types.Skill) (types.Student, error)
	FindByRollNumber(ctx context.Context, rollNumber int64) (types.Student, bool, error)
	FindBySkillPattern(ctx context.Context, pattern string) ([]types.Student, error)
	FindDayScholars(ctx context.Context) ([]types.Student, error)
	FindAll(ctx context.Context) ([]types.Student, error)
}

// Register mounts every student route on mux.
//
// Route table:
//
//	POST   /api/students                       add a student
//	GET    /api/students                       list all students
//	GET    /api/students/search?skill=<re>     students with a matching skill
//	GET    /api/students/day-scholars          students without guardian phone
//	GET    /api/students/{rollNumber}          display one student
//	PUT    /api/students/{rollNumber}/skills   replace a student's skills
//	DELETE /api/students/{rollNumber}          delete a student
//	GET    /api/skills                         the skill vocabulary
func Register(mux *http.ServeMux, roster Roster) {
	mux.HandleFunc("POST /api/students", New(roster))
	mux.HandleFunc("GET /api/students", GetList(roster))
	mux.HandleFunc("GET /api/students/search", SearchBySkill(roster))
	mux.HandleFunc("GET /api/students/day-scholars", DayScholars(roster))
	mux.HandleFunc("GET /api/students/{rollNumber}", GetByRollNumber(roster))
	mux.HandleFunc("PUT /api/students/{rollNumber}/skills", UpdateSkills(roster))
	mux.HandleFunc("DELETE /api/students/{rollNumber}", Delete(roster))
	mux.HandleFunc("GET /api/skills", Skills())
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
//
// Request body (JSON):
//
//	{ "rollNumber": 101, "name": "Asha Rao", "guardianPhone": "", "skills": ["chess", "dance"] }
//
// rollNumber may also be sent as a string ("101"); skills as a single
// string ("chess"). A blank or null guardianPhone means "day scholar".
//
// Responses: 201 + stored student · 400 validation · 409 duplicate roll
// number · 503 storage unavailable.
// ─────────────────────────────────────────────────────────────────────────────
func New(roster Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student", requestID(r))

		var req createRequest
		if !decode(w, r, &req) {
			return
		}

		created, err := roster.Create(r.Context(), req.candidate())
		if err != nil {
			writeError(w, r, err, int64(req.RollNumber))
			return
		}

		slog.Info("student created", slog.Int64("rollNumber", created.RollNumber), requestID(r))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// GetByRollNumber handles GET /api/students/{rollNumber}
func GetByRollNumber(roster Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roll, ok := pathRollNumber(w, r)
		if !ok {
			return
		}
		slog.Info("getting a student", slog.Int64("rollNumber", roll), requestID(r))

		student, found, err := roster.FindByRollNumber(r.Context(), roll)
		if err != nil {
			writeError(w, r, err, roll)
			return
		}
		if !found {
			writeError(w, r, types.ErrNotFound, roll)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// GetList handles GET /api/students
// Returns an empty array [] (not null) when there are no students.
func GetList(roster Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all students", requestID(r))

		students, err := roster.FindAll(r.Context())
		if err != nil {
			writeError(w, r, err, 0)
			return
		}

		response.WriteJSON(w, http.StatusOK, nonNil(students))
	}
}

// SearchBySkill handles GET /api/students/search?skill=<pattern>
//
// The pattern is a case-insensitive regular expression fragment matched
// against each skill tag ("danc" finds "dance"). skillPattern is accepted
// as an alias of skill. An empty or malformed pattern is a 400.
func SearchBySkill(roster Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		pattern := q.Get("skill")
		if pattern == "" {
			pattern = q.Get("skillPattern")
		}
		slog.Info("searching students by skill", slog.String("pattern", pattern), requestID(r))

		students, err := roster.FindBySkillPattern(r.Context(), pattern)
		if err != nil {
			writeError(w, r, err, 0)
			return
		}

		response.WriteJSON(w, http.StatusOK, nonNil(students))
	}
}

// DayScholars handles GET /api/students/day-scholars
func DayScholars(roster Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting day scholars", requestID(r))

		students, err := roster.FindDayScholars(r.Context())
		if err != nil {
			writeError(w, r, err, 0)
			return
		}

		response.WriteJSON(w, http.StatusOK, nonNil(students))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateSkills handles PUT /api/students/{rollNumber}/skills
// Replaces the skill set; every other field is immutable.
//
// Request body (JSON):
//
//	{ "skills": ["cricket"] }
//
// Responses: 200 + updated student · 400 validation · 404 unknown roll
// number · 503 storage unavailable.
// ─────────────────────────────────────────────────────────────────────────────
func UpdateSkills(roster Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roll, ok := pathRollNumber(w, r)
		if !ok {
			return
		}
		slog.Info("updating student skills", slog.Int64("rollNumber", roll), requestID(r))

		var req updateSkillsRequest
		if !decode(w, r, &req) {
			return
		}

		updated, err := roster.UpdateSkills(r.Context(), roll, []types.Skill(req.Skills))
		if err != nil {
			writeError(w, r, err, roll)
			return
		}

		slog.Info("student skills updated", slog.Int64("rollNumber", roll), requestID(r))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// Delete handles DELETE /api/students/{rollNumber}
// Responds 200 with the deleted student, 404 if there was none.
func Delete(roster Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roll, ok := pathRollNumber(w, r)
		if !ok {
			return
		}
		slog.Info("deleting a student", slog.Int64("rollNumber", roll), requestID(r))

		deleted, err := roster.DeleteByRollNumber(r.Context(), roll)
		if err != nil {
			writeError(w, r, err, roll)
			return
		}

		slog.Info("student deleted", slog.Int64("rollNumber", roll), requestID(r))
		response.WriteJSON(w, http.StatusOK, deleted)
	}
}

// Skills handles GET /api/skills and lists the allowed skill tags.
func Skills() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, types.Vocabulary())
	}
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return false
	}
	return true
}

// pathRollNumber parses {rollNumber}, answering 400 itself when it is not a
// positive integer.
func pathRollNumber(w http.ResponseWriter, r *http.Request) (int64, bool) {
	roll, err := strconv.ParseInt(r.PathValue("rollNumber"), 10, 64)
	if err != nil || roll <= 0 {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid roll number: must be a positive integer")))
		return 0, false
	}
	return roll, true
}

// writeError maps the roster error taxonomy onto HTTP statuses.
// Storage failures are logged with their cause but answered generically.
func writeError(w http.ResponseWriter, r *http.Request, err error, roll int64) {
	var verr *types.ValidationError

	switch {
	case errors.As(err, &verr):
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verr))
	case errors.Is(err, types.ErrInvalidPattern):
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
	case errors.Is(err, types.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound,
			response.Message(fmt.Sprintf("student with roll number %d not found", roll)))
	case errors.Is(err, types.ErrDuplicateRollNumber):
		response.WriteJSON(w, http.StatusConflict,
			response.Message(fmt.Sprintf("student with roll number %d already exists", roll)))
	default:
		slog.Error("storage failure", slog.String("error", err.Error()), requestID(r))
		response.WriteJSON(w, http.StatusServiceUnavailable,
			response.Message("storage is temporarily unavailable, please try again later"))
	}
}

func requestID(r *http.Request) slog.Attr {
	return slog.String("request_id", middleware.RequestIDFrom(r.Context()))
}

func nonNil(students []types.Student) []types.Student {
	if students == nil {
		return []types.Student{}
	}
	return students
}
