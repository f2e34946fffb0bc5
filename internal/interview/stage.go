package interview

import "strings"

// Stage is the symbolic label for the current phase of the interview dialogue.
type Stage string

const (
	StageUnknown      Stage = "unknown"
	StageIntroduction Stage = "introduction"
	StageOverview     Stage = "overview"
	StageTechnical    Stage = "technical"
	StageProject      Stage = "project"
	StageCompany      Stage = "company"
	StageCandidate    Stage = "candidate"
	StageClosing      Stage = "closing"
)

var knownStages = map[string]Stage{
	"introduction": StageIntroduction,
	"overview":     StageOverview,
	"technical":    StageTechnical,
	"project":      StageProject,
	"company":      StageCompany,
	"candidate":    StageCandidate,
	"closing":      StageClosing,
}

// ParseStage maps a model-emitted label onto the stage enumeration. Labels
// outside the protocol (including the empty string) become StageUnknown, so a
// malformed turn stays observable instead of surfacing as empty text.
func ParseStage(label string) Stage {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if stage, ok := knownStages[normalized]; ok {
		return stage
	}
	return StageUnknown
}

func (s Stage) String() string { return string(s) }
