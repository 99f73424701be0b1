// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, the roster, validation, and the storage backends can all
// import types without depending on each other.
package types

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Student is a persisted roster entry.
//
// RollNumber is the primary key. Skills is the only attribute that can be
// changed after creation; CreatedAt/UpdatedAt are assigned by the roster,
// never by the client.
type Student struct {
	RollNumber    int64     `json:"rollNumber"`
	Name          string    `json:"name"`
	GuardianPhone Phone     `json:"guardianPhone"`
	Skills        []Skill   `json:"skills"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// DayScholar reports whether the student has no guardian phone on file.
func (s Student) DayScholar() bool {
	return !s.GuardianPhone.IsSet()
}

// Candidate is the client-supplied part of a Student, checked by the
// validation package before anything is written.
type Candidate struct {
	RollNumber    int64
	Name          string
	GuardianPhone Phone
	Skills        []Skill
}

// ─────────────────────────────────────────────────────────────────────────────
// Phone is an optional guardian phone number.
//
// The zero value is "no phone". A Phone built from an empty or
// whitespace-only string is also "no phone", so "not provided" and
// "provided but blank" collapse into the same state instead of an empty
// string leaking into storage.
//
// JSON encoding: absent → null, present → "9876543210".
// ─────────────────────────────────────────────────────────────────────────────
type Phone struct {
	number string
	set    bool
}

// NoPhone returns the absence marker.
func NoPhone() Phone {
	return Phone{}
}

// PhoneOf trims s and returns it as a present phone, or the absence marker
// when nothing is left after trimming. It does not validate the format.
func PhoneOf(s string) Phone {
	s = strings.TrimSpace(s)
	if s == "" {
		return Phone{}
	}
	return Phone{number: s, set: true}
}

// PhoneFromPtr maps a nullable column/field to a Phone.
func PhoneFromPtr(s *string) Phone {
	if s == nil {
		return Phone{}
	}
	return PhoneOf(*s)
}

// IsSet reports whether a phone number is present.
func (p Phone) IsSet() bool { return p.set }

// Value returns the number and whether it is present.
func (p Phone) Value() (string, bool) { return p.number, p.set }

// Ptr returns nil for the absence marker, otherwise a pointer to the number.
func (p Phone) Ptr() *string {
	if !p.set {
		return nil
	}
	n := p.number
	return &n
}

// String returns the number, or "" when absent.
func (p Phone) String() string { return p.number }

func (p Phone) MarshalJSON() ([]byte, error) {
	if !p.set {
		return []byte("null"), nil
	}
	return json.Marshal(p.number)
}

// UnmarshalJSON treats null as absent. A number is taken as its decimal
// text, and any other non-string (true, {}, []) is kept as raw text so the
// validator reports it as a bad phone instead of the whole body failing.
func (p *Phone) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = Phone{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PhoneOf(s)
		return nil
	}
	*p = PhoneOf(string(data))
	return nil
}
