// Package roster implements the student repository: the create, update,
// delete and query operations the HTTP layer exposes, on top of any
// storage.Storage backend.
//
// The roster owns everything that must be identical across backends:
// field validation, timestamps, skill pattern checking, per-operation
// timeouts, and the mapping of backend failures onto the error taxonomy in
// the types package.
package roster

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"
	"time"

	"github.com/aanand-mishra/skillset-api/internal/storage"
	"github.com/aanand-mishra/skillset-api/internal/types"
	"github.com/aanand-mishra/skillset-api/internal/validation"
)

// MaxPatternLength caps user-supplied skill search patterns. The longest
// skill tag is 12 characters, so anything near this limit is not a
// meaningful search.
const MaxPatternLength = 64

// Repository is safe for concurrent use; it holds no per-request state.
type Repository struct {
	store        storage.Storage
	queryTimeout time.Duration
	now          func() time.Time
}

// New returns a Repository over store. Every operation is bounded by
// queryTimeout in addition to the caller's context.
func New(store storage.Storage, queryTimeout time.Duration) *Repository {
	return &Repository{
		store:        store,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

// Create validates c and inserts it.
//
// Failures: *types.ValidationError (nothing written),
// types.ErrDuplicateRollNumber, types.ErrStorageUnavailable.
func (r *Repository) Create(ctx context.Context, c types.Candidate) (types.Student, error) {
	if v := validation.Validate(c); len(v) > 0 {
		return types.Student{}, &types.ValidationError{Violations: v}
	}

	now := r.timestamp()
	s := types.Student{
		RollNumber:    c.RollNumber,
		Name:          strings.TrimSpace(c.Name),
		GuardianPhone: c.GuardianPhone,
		Skills:        append([]types.Skill(nil), c.Skills...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.store.CreateStudent(ctx, s); err != nil {
		return types.Student{}, classify("create", err)
	}
	return s, nil
}

// DeleteByRollNumber removes the student and returns the removed record.
// A second call for the same roll number fails with types.ErrNotFound.
func (r *Repository) DeleteByRollNumber(ctx context.Context, rollNumber int64) (types.Student, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	s, err := r.store.DeleteStudentByRollNumber(ctx, rollNumber)
	if err != nil {
		return types.Student{}, classify("delete", err)
	}
	return s, nil
}

// UpdateSkills replaces the skills of an existing student and bumps
// UpdatedAt. The new skills go through the same rule as on create.
func (r *Repository) UpdateSkills(ctx context.Context, rollNumber int64, skills []types.Skill) (types.Student, error) {
	if v := validation.ValidateSkills(skills); len(v) > 0 {
		return types.Student{}, &types.ValidationError{Violations: v}
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	s, err := r.store.UpdateStudentSkills(ctx, rollNumber, skills, r.timestamp())
	if err != nil {
		return types.Student{}, classify("update skills", err)
	}
	return s, nil
}

// FindByRollNumber looks a student up. Absence is reported through the
// boolean, not as an error.
func (r *Repository) FindByRollNumber(ctx context.Context, rollNumber int64) (types.Student, bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	s, err := r.store.GetStudentByRollNumber(ctx, rollNumber)
	if errors.Is(err, types.ErrNotFound) {
		return types.Student{}, false, nil
	}
	if err != nil {
		return types.Student{}, false, classify("find", err)
	}
	return s, true, nil
}

// FindBySkillPattern returns, ordered by roll number, every student with at
// least one skill matching pattern case-insensitively. The pattern is a
// regular expression fragment ("danc", "^s", "ing$").
//
// The pattern is compiled with Go's RE2 engine before any query runs:
// empty, oversized or malformed patterns fail with a *types.PatternError.
// RE2 has no backreferences or lookarounds, so anything that compiles here
// cannot trigger catastrophic backtracking in the backend either.
func (r *Repository) FindBySkillPattern(ctx context.Context, pattern string) ([]types.Student, error) {
	pattern, err := CheckPattern(pattern)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	students, err := r.store.GetStudentsBySkillPattern(ctx, pattern)
	if err != nil {
		return nil, classify("find by skill", err)
	}
	return students, nil
}

// FindDayScholars returns, ordered by roll number, the students with no
// guardian phone on file.
func (r *Repository) FindDayScholars(ctx context.Context) ([]types.Student, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	students, err := r.store.GetDayScholars(ctx)
	if err != nil {
		return nil, classify("find day scholars", err)
	}
	return students, nil
}

// FindAll returns every student ordered by roll number.
func (r *Repository) FindAll(ctx context.Context) ([]types.Student, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	students, err := r.store.GetStudents(ctx)
	if err != nil {
		return nil, classify("find all", err)
	}
	return students, nil
}

// Ping reports whether the backend is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.store.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// CheckPattern trims a skill search pattern and makes sure it compiles.
// It returns the trimmed pattern.
func CheckPattern(pattern string) (string, error) {
	pattern = strings.TrimSpace(pattern)

	switch {
	case pattern == "":
		return "", &types.PatternError{Reason: "please enter a skill pattern to search"}
	case len(pattern) > MaxPatternLength:
		return "", &types.PatternError{
			Reason: fmt.Sprintf("pattern is longer than %d characters", MaxPatternLength),
		}
	}

	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		var syntaxErr *syntax.Error
		reason := err.Error()
		if errors.As(err, &syntaxErr) {
			reason = syntaxErr.Code.String()
		}
		return "", &types.PatternError{Pattern: pattern, Reason: reason}
	}
	return pattern, nil
}

func (r *Repository) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

// timestamp is truncated to milliseconds, the resolution both backends keep.
func (r *Repository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

// classify passes expected outcomes through and turns every other backend
// failure into ErrStorageUnavailable, keeping the cause in the chain.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrDuplicateRollNumber):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, types.ErrStorageUnavailable, err)
	}
}
