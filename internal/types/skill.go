package types

// Skill is one extracurricular tag from a fixed vocabulary.
type Skill string

const (
	SkillDance        Skill = "dance"
	SkillDrawing      Skill = "drawing"
	SkillPainting     Skill = "painting"
	SkillSinging      Skill = "singing"
	SkillStoryWriting Skill = "storyWriting"
	SkillChess        Skill = "chess"
	SkillCricket      Skill = "cricket"
	SkillSoccer       Skill = "soccer"
	SkillOrchestra    Skill = "orchestra"
)

var vocabulary = []Skill{
	SkillDance,
	SkillDrawing,
	SkillPainting,
	SkillSinging,
	SkillStoryWriting,
	SkillChess,
	SkillCricket,
	SkillSoccer,
	SkillOrchestra,
}

// Vocabulary returns every allowed skill tag in display order.
// The returned slice is a copy.
func Vocabulary() []Skill {
	out := make([]Skill, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Known reports whether s is part of the vocabulary. Matching is exact and
// case-sensitive: "Chess" is not a known tag.
func (s Skill) Known() bool {
	for _, v := range vocabulary {
		if s == v {
			return true
		}
	}
	return false
}

// SkillsToStrings converts tags to their storage representation.
func SkillsToStrings(skills []Skill) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = string(s)
	}
	return out
}

// SkillsFromStrings is the inverse of SkillsToStrings.
func SkillsFromStrings(ss []string) []Skill {
	out := make([]Skill, len(ss))
	for i, s := range ss {
		out[i] = Skill(s)
	}
	return out
}
