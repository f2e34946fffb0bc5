package interview

import (
	_ "embed"
	"strings"
)

//go:embed prompt.md
var promptTemplate string

// systemPrompt renders the interviewer framing with the session documents
// filled in. The stage protocol is established once here; per-turn payloads
// carry only short instructions.
func systemPrompt(resume, jobDescription string) string {
	replacer := strings.NewReplacer(
		"{{resume}}", strings.TrimSpace(resume),
		"{{job_description}}", strings.TrimSpace(jobDescription),
	)
	return replacer.Replace(promptTemplate)
}
