package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhoneOf(t *testing.T) {
	assert.False(t, PhoneOf("").IsSet())
	assert.False(t, PhoneOf("   ").IsSet())

	p := PhoneOf(" 9876543210 ")
	n, ok := p.Value()
	assert.True(t, ok)
	assert.Equal(t, "9876543210", n)
	require.NotNil(t, p.Ptr())
	assert.Equal(t, "9876543210", *p.Ptr())

	assert.Nil(t, NoPhone().Ptr())
	assert.False(t, PhoneFromPtr(nil).IsSet())
}

func TestPhoneJSON(t *testing.T) {
	out, err := json.Marshal(Student{RollNumber: 7, Skills: []Skill{SkillChess}})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"guardianPhone":null`)

	var s Student
	require.NoError(t, json.Unmarshal([]byte(`{"guardianPhone":"9876543210"}`), &s))
	assert.Equal(t, "9876543210", s.GuardianPhone.String())
	assert.False(t, s.DayScholar())

	require.NoError(t, json.Unmarshal([]byte(`{"guardianPhone":""}`), &s))
	assert.True(t, s.DayScholar())

	require.NoError(t, json.Unmarshal([]byte(`{"guardianPhone":null}`), &s))
	assert.True(t, s.DayScholar())

	require.NoError(t, json.Unmarshal([]byte(`{"guardianPhone":9876543210}`), &s))
	assert.Equal(t, "9876543210", s.GuardianPhone.String())

	require.NoError(t, json.Unmarshal([]byte(`{"guardianPhone":true}`), &s))
	assert.True(t, s.GuardianPhone.IsSet())
	assert.Equal(t, "true", s.GuardianPhone.String())
}

func TestSkillKnown(t *testing.T) {
	for _, s := range Vocabulary() {
		assert.True(t, s.Known(), s)
	}
	assert.Len(t, Vocabulary(), 9)
	assert.False(t, Skill("Chess").Known())
	assert.False(t, Skill("karate").Known())
	assert.False(t, Skill("").Known())
}

func TestErrorWrapping(t *testing.T) {
	var err error = &ValidationError{Violations: Violations{
		{Field: "name", Kind: InvalidName, Message: "name must be 2-100 characters"},
		{Field: "skills", Kind: InvalidSkills, Message: "at least one skill is required"},
	}}
	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.Equal(t, "validation failed: name must be 2-100 characters, at least one skill is required", err.Error())

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Violations.Has(InvalidSkills))
	assert.False(t, verr.Violations.Has(InvalidPhone))

	err = &PatternError{Pattern: "(", Reason: "missing closing )"}
	assert.True(t, errors.Is(err, ErrInvalidPattern))
	assert.Equal(t, `invalid skill pattern "(": missing closing )`, err.Error())
}
