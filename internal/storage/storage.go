// Package storage defines the Storage interface: the contract any
// database backend must satisfy to hold the student roster.
//
// Handlers and the roster depend only on this interface, so the MongoDB
// and SQLite backends are interchangeable and tests can pass a fake.
//
// Error contract shared by all implementations:
//   - a second record with an existing roll number → types.ErrDuplicateRollNumber,
//     detected by the backend's own uniqueness constraint
//   - a keyed read/update/delete that matches nothing → types.ErrNotFound
//   - anything else is returned wrapped and treated by callers as the
//     backend being unavailable
package storage

import (
	"context"
	"time"

	"github.com/aanand-mishra/skillset-api/internal/types"
)

// Storage is the database contract.
type Storage interface {
	// CreateStudent inserts s as-is (timestamps included).
	CreateStudent(ctx context.Context, s types.Student) error

	// GetStudentByRollNumber fetches a single student by primary key.
	GetStudentByRollNumber(ctx context.Context, rollNumber int64) (types.Student, error)

	// GetStudents returns every student ordered by roll number.
	// Returns an empty slice (not nil) if there are no students.
	GetStudents(ctx context.Context) ([]types.Student, error)

	// GetStudentsBySkillPattern returns, ordered by roll number, the
	// students having at least one skill matched by pattern. The pattern
	// has already been checked to compile as an RE2 expression; backends
	// match it case-insensitively and unanchored.
	GetStudentsBySkillPattern(ctx context.Context, pattern string) ([]types.Student, error)

	// GetDayScholars returns students without a guardian phone, ordered
	// by roll number.
	GetDayScholars(ctx context.Context) ([]types.Student, error)

	// UpdateStudentSkills replaces the skills of one student and sets
	// UpdatedAt, atomically, returning the stored result.
	UpdateStudentSkills(ctx context.Context, rollNumber int64, skills []types.Skill, updatedAt time.Time) (types.Student, error)

	// DeleteStudentByRollNumber removes a student and returns what was removed.
	DeleteStudentByRollNumber(ctx context.Context, rollNumber int64) (types.Student, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases connections.
	Close() error
}
