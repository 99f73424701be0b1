package student

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/aanand-mishra/skillset-api/internal/types"
)

type createRequest struct {
	RollNumber    rollNumber  `json:"rollNumber"`
	Name          string      `json:"name"`
	GuardianPhone types.Phone `json:"guardianPhone"`
	Skills        skillList   `json:"skills"`
}

func (c createRequest) candidate() types.Candidate {
	return types.Candidate{
		RollNumber:    int64(c.RollNumber),
		Name:          c.Name,
		GuardianPhone: c.GuardianPhone,
		Skills:        []types.Skill(c.Skills),
	}
}

type updateSkillsRequest struct {
	Skills skillList `json:"skills"`
}

// rollNumber accepts 101 or "101". Anything that is not an integer
// (1.5, "abc", true) decodes to 0 so it is reported by validation as an
// invalid roll number instead of failing the whole body.
type rollNumber int64

func (n *rollNumber) UnmarshalJSON(data []byte) error {
	*n = 0

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		data = []byte(strings.TrimSpace(s))
	}

	if v, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*n = rollNumber(v)
		return nil
	}
	// 101.0 and 1e2 are integers too.
	if f, err := strconv.ParseFloat(string(data), 64); err == nil &&
		f == math.Trunc(f) && math.Abs(f) <= math.MaxInt64/2 {
		*n = rollNumber(f)
	}
	return nil
}

// skillList accepts ["chess", "dance"] or a single "chess", the two shapes
// an HTML checkbox group produces once converted to JSON. Non-string
// elements (7, true, {}) are kept as their raw text, and so is a non-array
// value, so they surface as unknown skills rather than a decode failure.
type skillList []types.Skill

func (l *skillList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = nil
		return nil

	case len(data) > 0 && data[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(skillList, 0, len(raw))
		for _, r := range raw {
			out = append(out, skillOf(r))
		}
		*l = out
		return nil
	}

	s := skillOf(data)
	if s == "" {
		*l = skillList{}
		return nil
	}
	*l = skillList{s}
	return nil
}

// skillOf decodes a JSON string, or returns any other value's raw text.
func skillOf(data json.RawMessage) types.Skill {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return types.Skill(s)
		}
	}
	return types.Skill(data)
}
