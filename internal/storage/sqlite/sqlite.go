// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package and
// the mattn/go-sqlite3 driver.
//
// Layout:
//
//	students        one row per student, roll_number is the PRIMARY KEY
//	student_skills  one row per (student, skill), position keeps the order;
//	                indexed on skill for pattern search
//
// Pattern search uses SQL's REGEXP operator, which SQLite leaves to the
// application: the driver registered in init() backs it with Go's regexp
// package.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aanand-mishra/skillset-api/internal/types"
	"github.com/mattn/go-sqlite3"
)

// driverName is the database/sql driver registered by this package: the
// stock sqlite3 driver plus a regexp() SQL function.
const driverName = "sqlite3_skillset"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// A connection runs one statement at a time, so the last
			// compiled pattern can be cached without locking.
			var last *regexp.Regexp

			// "X REGEXP Y" is evaluated by SQLite as regexp(Y, X).
			return conn.RegisterFunc("regexp", func(pattern, value string) (bool, error) {
				if last == nil || last.String() != pattern {
					re, err := regexp.Compile(pattern)
					if err != nil {
						return false, err
					}
					last = re
				}
				return last.MatchString(value), nil
			}, true)
		},
	})
}

const schema = `
	CREATE TABLE IF NOT EXISTS students (
		roll_number    INTEGER PRIMARY KEY CHECK (roll_number > 0),
		name           TEXT    NOT NULL,
		guardian_phone TEXT,
		created_at     INTEGER NOT NULL,
		updated_at     INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS student_skills (
		roll_number INTEGER NOT NULL REFERENCES students (roll_number) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		skill       TEXT    NOT NULL,
		PRIMARY KEY (roll_number, position)
	);

	CREATE INDEX IF NOT EXISTS idx_student_skills_skill ON student_skills (skill);
`

// selectStudents joins every student with its skills. Rows come out
// grouped by student and ordered by skill position so scanStudents can fold
// them back into one types.Student each.
const selectStudents = `
	SELECT s.roll_number, s.name, s.guardian_phone, s.created_at, s.updated_at, k.skill
	FROM students s
	JOIN student_skills k ON k.roll_number = s.roll_number
`

const orderStudents = ` ORDER BY s.roll_number, k.position`

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is a connection pool safe for concurrent use.
type SQLite struct {
	Db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// New opens (creating if needed) the database file at path and makes sure
// the schema exists. Missing parent directories are created. The path is
// percent-escaped into the URI, so names containing '?' or '#' work.
//
// DSN options:
//
//	_foreign_keys  cascade skill rows when a student is deleted
//	_busy_timeout  wait for a competing writer instead of failing at once
//	_txlock        take the write lock at BEGIN so concurrent writers queue
func New(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite.New: create directory: %w", err)
	}

	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() +
		"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create schema: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateStudent inserts the student row and its skills in one transaction.
//
// Uniqueness is left to the PRIMARY KEY: two concurrent inserts of the same
// roll number serialize on the write lock and the loser gets a constraint
// error, which is translated to types.ErrDuplicateRollNumber.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateStudent(ctx context.Context, st types.Student) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CreateStudent: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO students (roll_number, name, guardian_phone, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		st.RollNumber, st.Name, st.GuardianPhone.Ptr(), toMillis(st.CreatedAt), toMillis(st.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrDuplicateRollNumber
		}
		return fmt.Errorf("CreateStudent: insert student: %w", err)
	}

	if err := insertSkills(ctx, tx, st.RollNumber, st.Skills); err != nil {
		return fmt.Errorf("CreateStudent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CreateStudent: commit: %w", err)
	}
	return nil
}

// GetStudentByRollNumber returns types.ErrNotFound when no row matches.
func (s *SQLite) GetStudentByRollNumber(ctx context.Context, rollNumber int64) (types.Student, error) {
	return getOne(ctx, s.Db, rollNumber)
}

// GetStudents returns every student ordered by roll number.
func (s *SQLite) GetStudents(ctx context.Context) ([]types.Student, error) {
	students, err := queryStudents(ctx, s.Db, selectStudents+orderStudents)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: %w", err)
	}
	return students, nil
}

// GetStudentsBySkillPattern returns students holding at least one skill
// that matches pattern, case-insensitively. The pattern must already have
// been checked as a valid RE2 expression.
func (s *SQLite) GetStudentsBySkillPattern(ctx context.Context, pattern string) ([]types.Student, error) {
	students, err := queryStudents(ctx, s.Db,
		selectStudents+
			` WHERE s.roll_number IN (SELECT roll_number FROM student_skills WHERE skill REGEXP ?)`+
			orderStudents,
		"(?i)"+pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("GetStudentsBySkillPattern: %w", err)
	}
	return students, nil
}

// GetDayScholars returns students stored without a guardian phone.
func (s *SQLite) GetDayScholars(ctx context.Context) ([]types.Student, error) {
	students, err := queryStudents(ctx, s.Db, selectStudents+` WHERE s.guardian_phone IS NULL`+orderStudents)
	if err != nil {
		return nil, fmt.Errorf("GetDayScholars: %w", err)
	}
	return students, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateStudentSkills bumps updated_at (which doubles as the existence
// check), replaces every skill row, and reads the result back, all inside
// one transaction.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) UpdateStudentSkills(ctx context.Context, rollNumber int64, skills []types.Skill, updatedAt time.Time) (types.Student, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentSkills: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE students SET updated_at = ? WHERE roll_number = ?",
		toMillis(updatedAt), rollNumber,
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentSkills: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentSkills: rows affected: %w", err)
	}
	if n == 0 {
		return types.Student{}, types.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM student_skills WHERE roll_number = ?", rollNumber); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentSkills: clear skills: %w", err)
	}
	if err := insertSkills(ctx, tx, rollNumber, skills); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentSkills: %w", err)
	}

	updated, err := getOne(ctx, tx, rollNumber)
	if err != nil {
		return types.Student{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentSkills: commit: %w", err)
	}
	return updated, nil
}

// DeleteStudentByRollNumber reads the row and deletes it in the same
// transaction; skill rows go with it through ON DELETE CASCADE.
func (s *SQLite) DeleteStudentByRollNumber(ctx context.Context, rollNumber int64) (types.Student, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("DeleteStudentByRollNumber: begin: %w", err)
	}
	defer tx.Rollback()

	st, err := getOne(ctx, tx, rollNumber)
	if err != nil {
		return types.Student{}, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM students WHERE roll_number = ?", rollNumber); err != nil {
		return types.Student{}, fmt.Errorf("DeleteStudentByRollNumber: exec: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("DeleteStudentByRollNumber: commit: %w", err)
	}
	return st, nil
}

// Ping checks that the database file can still be reached.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

func insertSkills(ctx context.Context, tx *sql.Tx, rollNumber int64, skills []types.Skill) error {
	if len(skills) == 0 {
		return nil
	}

	// One multi-row INSERT: (?, ?, ?), (?, ?, ?), ...
	var b strings.Builder
	b.WriteString("INSERT INTO student_skills (roll_number, position, skill) VALUES ")
	args := make([]any, 0, len(skills)*3)
	for i, sk := range skills {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, rollNumber, i, string(sk))
	}

	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert skills: %w", err)
	}
	return nil
}

func getOne(ctx context.Context, q queryer, rollNumber int64) (types.Student, error) {
	students, err := queryStudents(ctx, q, selectStudents+` WHERE s.roll_number = ?`+orderStudents, rollNumber)
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByRollNumber: %w", err)
	}
	if len(students) == 0 {
		return types.Student{}, types.ErrNotFound
	}
	return students[0], nil
}

// queryStudents runs a selectStudents query and folds consecutive rows with
// the same roll number into one student.
func queryStudents(ctx context.Context, q queryer, query string, args ...any) ([]types.Student, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)

	for rows.Next() {
		var (
			roll             int64
			name             string
			phone            sql.NullString
			created, updated int64
			skill            string
		)
		if err := rows.Scan(&roll, &name, &phone, &created, &updated, &skill); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		if n := len(students); n > 0 && students[n-1].RollNumber == roll {
			students[n-1].Skills = append(students[n-1].Skills, types.Skill(skill))
			continue
		}

		st := types.Student{
			RollNumber: roll,
			Name:       name,
			Skills:     []types.Skill{types.Skill(skill)},
			CreatedAt:  fromMillis(created),
			UpdatedAt:  fromMillis(updated),
		}
		if phone.Valid {
			st.GuardianPhone = types.PhoneOf(phone.String)
		}
		students = append(students, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return students, nil
}

// isUniqueViolation reports whether err is SQLite rejecting a duplicate key.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
