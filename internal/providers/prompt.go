package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/sqlgate/internal/config"
	"github.com/dshills/sqlgate/internal/window"
)

// Prompt holds the status markers the reviewer must use, so the rejection
// policy can recognize its verdict.
type Prompt struct {
	PassMarker        string
	ConditionalMarker string
	RejectMarker      string
	Focus             []string
}

// PromptFromConfig takes the first configured marker of each kind.
func PromptFromConfig(cfg config.Config) Prompt {
	first := func(list []string, def string) string {
		if len(list) > 0 {
			return list[0]
		}
		return def
	}
	return Prompt{
		PassMarker:        first(cfg.Policy.PassMarkers, "**APPROVED**"),
		ConditionalMarker: first(cfg.Policy.ConditionalMarkers, "**CONDITIONALLY APPROVED**"),
		RejectMarker:      first(cfg.Policy.RejectMarkers, "**REJECTED**"),
		Focus:             cfg.Generative.Focus,
	}
}

const systemPromptTemplate = `You are a strict database reviewer in a CI pipeline. You review one SQL snippet at a time, extracted from a changed file.

Rules:
1. Review only the SQL shown. Lines reading "%[4]s" stand for unchanged code that was left out.
2. Look for destructive or irreversible statements, missing WHERE clauses, SQL injection risks, personal data exposure, performance problems (full scans, SELECT *, missing indexes) and syntax errors.
3. Be concise and actionable. Every problem must come with a concrete fix.
4. Personal data in the snippet has already been masked; do not ask for it.

Respond in Markdown. The first line must be exactly one of:
- "Status: %[1]s" when the SQL can be merged as is,
- "Status: %[2]s" when it can be merged after minor changes,
- "Status: %[3]s" when it must not be merged.
Then list the findings as bullet points, each with the problem and the fix.`

// SystemPrompt returns the system prompt for p.
func (p Prompt) SystemPrompt() string {
	return fmt.Sprintf(systemPromptTemplate, p.PassMarker, p.ConditionalMarker, p.RejectMarker, window.OmittedMarker)
}

// BuildUserPrompt constructs the user prompt for one snippet.
func (p Prompt) BuildUserPrompt(req ReviewRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review the following SQL from %s.\n", req.Path)
	if lang := detectLanguage(req.Path); lang != "" {
		fmt.Fprintf(&b, "Host language: %s\n", lang)
	}
	if req.Dialect != "" {
		fmt.Fprintf(&b, "SQL dialect: %s\n", req.Dialect)
	}
	if len(p.Focus) > 0 {
		fmt.Fprintf(&b, "\nFocus areas: %s. Prioritize findings in these areas.\n", strings.Join(p.Focus, ", "))
	}

	b.WriteString("\n--- BEGIN SQL ---\n")
	b.WriteString(req.Text)
	b.WriteString("\n--- END SQL ---\n")

	return b.String()
}

func detectLanguage(path string) string {
	langMap := map[string]string{
		".sql":    "SQL",
		".java":   "Java",
		".kt":     "Kotlin",
		".scala":  "Scala",
		".groovy": "Groovy",
		".xml":    "MyBatis XML mapper",
		".py":     "Python",
		".go":     "Go",
		".js":     "JavaScript",
		".ts":     "TypeScript",
		".rb":     "Ruby",
		".php":    "PHP",
		".cs":     "C#",
	}
	return langMap[strings.ToLower(filepath.Ext(path))]
}
