// Package validation checks candidate student records against the roster's
// field rules before anything is persisted.
//
// The rules are declared as go-playground/validator struct tags on a private
// mirror of types.Candidate. The validator evaluates every field and returns
// one FieldError per failure, which is translated here into a
// types.Violation. Callers always get a list back; malformed input never
// produces an error or a panic. Only a rule without a mapped kind panics.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aanand-mishra/skillset-api/internal/types"
	"github.com/go-playground/validator/v10"
)

const (
	nameMin = 2
	nameMax = 100
)

// phonePattern accepts exactly 10 ASCII digits, the first being 6, 7, 8 or 9.
var phonePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

// record is what the validator actually sees. Name is pre-trimmed and the
// optional phone is flattened to "" when absent so `omitempty` skips it.
type record struct {
	RollNumber    int64    `validate:"gt=0"`
	Name          string   `validate:"min=2,max=100"`
	GuardianPhone string   `validate:"omitempty,guardianphone"`
	Skills        []string `validate:"min=1,unique,dive,skill"`
}

type skillsOnly struct {
	Skills []string `validate:"min=1,unique,dive,skill"`
}

// validate is safe for concurrent use once the custom tags are registered.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Registration only fails on a bad tag name.
	if err := v.RegisterValidation("guardianphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("skill", func(fl validator.FieldLevel) bool {
		return types.Skill(fl.Field().String()).Known()
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate runs every field rule on c and returns all violations found.
// An empty result means c may be persisted.
func Validate(c types.Candidate) types.Violations {
	phone, _ := c.GuardianPhone.Value()
	r := record{
		RollNumber:    c.RollNumber,
		Name:          strings.TrimSpace(c.Name),
		GuardianPhone: phone,
		Skills:        types.SkillsToStrings(c.Skills),
	}
	return translate(validate.Struct(r))
}

// ValidateSkills applies only the skills rule. UpdateSkills uses it since
// skills are the only mutable field.
func ValidateSkills(skills []types.Skill) types.Violations {
	return translate(validate.Struct(skillsOnly{Skills: types.SkillsToStrings(skills)}))
}

func translate(err error) types.Violations {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError: a non-struct reached the validator.
		panic(fmt.Sprintf("validation: %v", err))
	}

	out := make(types.Violations, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, violationFor(fe))
	}
	return out
}

func violationFor(fe validator.FieldError) types.Violation {
	field := fe.StructField()

	switch {
	case field == "RollNumber":
		return types.Violation{
			Field:   "rollNumber",
			Kind:    types.InvalidRollNumber,
			Message: "roll number must be a positive integer",
		}

	case field == "Name":
		return types.Violation{
			Field:   "name",
			Kind:    types.InvalidName,
			Message: fmt.Sprintf("name must be %d-%d characters long", nameMin, nameMax),
		}

	case field == "GuardianPhone":
		return types.Violation{
			Field:   "guardianPhone",
			Kind:    types.InvalidPhone,
			Message: "guardian phone must be a valid 10-digit mobile number starting with 6-9",
		}

	// Dive errors carry the element index, e.g. "Skills[2]".
	case strings.HasPrefix(field, "Skills"):
		v := types.Violation{Field: "skills", Kind: types.InvalidSkills}
		switch fe.Tag() {
		case "min":
			v.Message = "at least one skill is required"
		case "unique":
			v.Message = "skills must not repeat"
		default:
			v.Message = fmt.Sprintf("unknown skill %q", fe.Value())
		}
		return v
	}

	// A rule was added to record without a mapping above.
	panic(fmt.Sprintf("validation: no violation kind for field %s (%s)", field, fe.Tag()))
}
