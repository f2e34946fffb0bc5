package interview

import (
	"regexp"
	"strings"
)

// The model output contract is unenforced free text. Extraction is purely
// syntactic and never fails a turn: missing or malformed markup degrades to
// an empty string that the caller must tolerate.
var (
	stagePattern       = regexp.MustCompile(`(?s)<interview_stage>(.*?)</interview_stage>`)
	interviewerPattern = regexp.MustCompile(`(?s)<interviewer>(.*?)</interviewer>`)
)

// ExtractStage returns the trimmed text between interview_stage tags.
func ExtractStage(raw string) string {
	return extractTagged(stagePattern, raw)
}

// ExtractInterviewer returns the trimmed text between interviewer tags.
func ExtractInterviewer(raw string) string {
	return extractTagged(interviewerPattern, raw)
}

func extractTagged(pattern *regexp.Regexp, raw string) string {
	matches := pattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return ""
	}

	parts := make([]string, 0, len(matches))
	for _, match := range matches {
		part := strings.TrimSpace(match[1])
		if part == "" {
			continue
		}
		parts = append(parts, part)
	}

	return strings.Join(parts, "\n")
}
