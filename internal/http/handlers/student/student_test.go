package student

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aanand-mishra/skillset-api/internal/roster"
	"github.com/aanand-mishra/skillset-api/internal/storage/sqlite"
	"github.com/aanand-mishra/skillset-api/internal/types"
	"github.com/aanand-mishra/skillset-api/internal/utils/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *http.ServeMux {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mux := http.NewServeMux()
	Register(mux, roster.New(db, 5*time.Second))
	return mux
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestStudentFlow(t *testing.T) {
	mux := newServer(t)

	rec := do(t, mux, http.MethodPost, "/api/students",
		`{"rollNumber": 101, "name": "Asha Rao", "guardianPhone": "", "skills": ["chess", "dance"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[types.Student](t, rec)
	assert.Equal(t, int64(101), created.RollNumber)
	assert.True(t, created.DayScholar())

	rec = do(t, mux, http.MethodGet, "/api/students/101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[types.Student](t, rec)
	assert.Equal(t, []types.Skill{types.SkillChess, types.SkillDance}, got.Skills)
	assert.Contains(t, rec.Body.String(), `"guardianPhone":null`)

	rec = do(t, mux, http.MethodPut, "/api/students/101/skills", `{"skills": ["cricket"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []types.Skill{types.SkillCricket}, decodeBody[types.Student](t, rec).Skills)

	rec = do(t, mux, http.MethodGet, "/api/students/day-scholars", "")
	require.Equal(t, http.StatusOK, rec.Code)
	scholars := decodeBody[[]types.Student](t, rec)
	require.Len(t, scholars, 1)
	assert.Equal(t, int64(101), scholars[0].RollNumber)

	rec = do(t, mux, http.MethodGet, "/api/students/search?skill=CRICK", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Student](t, rec), 1)

	rec = do(t, mux, http.MethodDelete, "/api/students/101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(101), decodeBody[types.Student](t, rec).RollNumber)

	rec = do(t, mux, http.MethodDelete, "/api/students/101", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "student with roll number 101 not found", decodeBody[response.Response](t, rec).Error)

	rec = do(t, mux, http.MethodGet, "/api/students/101", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/students", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreate_Duplicate(t *testing.T) {
	mux := newServer(t)

	body := `{"rollNumber": "7", "name": "Ravi", "guardianPhone": "9876543210", "skills": "soccer"}`
	rec := do(t, mux, http.MethodPost, "/api/students", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[types.Student](t, rec)
	assert.Equal(t, []types.Skill{types.SkillSoccer}, created.Skills)
	assert.Equal(t, "9876543210", created.GuardianPhone.String())

	rec = do(t, mux, http.MethodPost, "/api/students", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "student with roll number 7 already exists", decodeBody[response.Response](t, rec).Error)
}

func TestCreate_Validation(t *testing.T) {
	mux := newServer(t)

	rec := do(t, mux, http.MethodPost, "/api/students",
		`{"rollNumber": 1.5, "name": "A", "guardianPhone": "1234567890", "skills": ["karate"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[response.Response](t, rec)
	assert.Equal(t, response.StatusError, resp.Status)
	assert.True(t, resp.Violations.Has(types.InvalidRollNumber))
	assert.True(t, resp.Violations.Has(types.InvalidName))
	assert.True(t, resp.Violations.Has(types.InvalidPhone))
	assert.True(t, resp.Violations.Has(types.InvalidSkills))

	for _, roll := range []string{`0`, `-4`, `"abc"`, `null`, `true`} {
		rec := do(t, mux, http.MethodPost, "/api/students",
			`{"rollNumber": `+roll+`, "name": "Asha", "skills": ["chess"]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code, roll)
		resp := decodeBody[response.Response](t, rec)
		assert.Equal(t, []types.ViolationKind{types.InvalidRollNumber}, kinds(resp.Violations), roll)
	}

	rec = do(t, mux, http.MethodPost, "/api/students", `{"rollNumber": 2, "name": "Asha", "skills": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, decodeBody[response.Response](t, rec).Violations.Has(types.InvalidSkills))
}

func TestCreate_NonStringFields(t *testing.T) {
	mux := newServer(t)

	rec := do(t, mux, http.MethodPost, "/api/students",
		`{"rollNumber": 0, "name": "A", "guardianPhone": 9876543210, "skills": ["karate"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	resp := decodeBody[response.Response](t, rec)
	assert.Equal(t, []types.ViolationKind{types.InvalidRollNumber, types.InvalidName, types.InvalidSkills},
		kinds(resp.Violations))

	rec = do(t, mux, http.MethodPost, "/api/students",
		`{"rollNumber": 3, "name": "Asha", "guardianPhone": true, "skills": ["chess", 7]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	resp = decodeBody[response.Response](t, rec)
	assert.Equal(t, []types.ViolationKind{types.InvalidPhone, types.InvalidSkills}, kinds(resp.Violations))

	rec = do(t, mux, http.MethodPost, "/api/students",
		`{"rollNumber": 3, "name": "Asha", "guardianPhone": {"n": 1}, "skills": {"chess": true}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	resp = decodeBody[response.Response](t, rec)
	assert.Equal(t, []types.ViolationKind{types.InvalidPhone, types.InvalidSkills}, kinds(resp.Violations))

	rec = do(t, mux, http.MethodPost, "/api/students",
		`{"rollNumber": 3, "name": "Asha", "guardianPhone": 9876543210, "skills": ["chess"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "9876543210", decodeBody[types.Student](t, rec).GuardianPhone.String())

	rec = do(t, mux, http.MethodPut, "/api/students/3/skills", `{"skills": [1, "dance"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, []types.ViolationKind{types.InvalidSkills}, kinds(decodeBody[response.Response](t, rec).Violations))
}

func TestBadRequests(t *testing.T) {
	mux := newServer(t)

	rec := do(t, mux, http.MethodPost, "/api/students", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body is empty", decodeBody[response.Response](t, rec).Error)

	rec = do(t, mux, http.MethodPost, "/api/students", `{"rollNumber":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, path := range []string{"/api/students/abc", "/api/students/0", "/api/students/-1"} {
		rec = do(t, mux, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec = do(t, mux, http.MethodPut, "/api/students/5/skills", `{"skills": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPut, "/api/students/5/skills", `{"skills": ["chess"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/students/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[response.Response](t, rec).Error, "invalid skill pattern")

	rec = do(t, mux, http.MethodGet, "/api/students/search?skillPattern=%28", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSkills(t *testing.T) {
	mux := newServer(t)

	rec := do(t, mux, http.MethodGet, "/api/skills", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.Vocabulary(), decodeBody[[]types.Skill](t, rec))
}

func TestStorageUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, downRoster{})

	for _, tc := range []struct{ method, target, body string }{
		{http.MethodPost, "/api/students", `{"rollNumber": 1, "name": "Asha", "skills": ["chess"]}`},
		{http.MethodGet, "/api/students", ""},
		{http.MethodGet, "/api/students/1", ""},
		{http.MethodGet, "/api/students/day-scholars", ""},
		{http.MethodGet, "/api/students/search?skill=chess", ""},
		{http.MethodPut, "/api/students/1/skills", `{"skills": ["chess"]}`},
		{http.MethodDelete, "/api/students/1", ""},
	} {
		rec := do(t, mux, tc.method, tc.target, tc.body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.target)

		resp := decodeBody[response.Response](t, rec)
		assert.NotContains(t, resp.Error, "dial tcp", tc.target)
	}
}

func kinds(v types.Violations) []types.ViolationKind {
	out := make([]types.ViolationKind, len(v))
	for i, x := range v {
		out[i] = x.Kind
	}
	return out
}

var errDown = errors.Join(types.ErrStorageUnavailable, errors.New("dial tcp 127.0.0.1:27017: connect: connection refused"))

// downRoster behaves like a roster whose backend cannot be reached.
type downRoster struct{}

func (downRoster) Create(context.Context, types.Candidate) (types.Student, error) {
	return types.Student{}, errDown
}
func (downRoster) DeleteByRollNumber(context.Context, int64) (types.Student, error) {
	return types.Student{}, errDown
}
func (downRoster) UpdateSkills(context.Context, int64, []types.Skill) (types.Student, error) {
	return types.Student{}, errDown
}
func (downRoster) FindByRollNumber(context.Context, int64) (types.Student, bool, error) {
	return types.Student{}, false, errDown
}
func (downRoster) FindBySkillPattern(context.Context, string) ([]types.Student, error) {
	return nil, errDown
}
func (downRoster) FindDayScholars(context.Context) ([]types.Student, error) { return nil, errDown }
func (downRoster) FindAll(context.Context) ([]types.Student, error) { return nil, errDown }
