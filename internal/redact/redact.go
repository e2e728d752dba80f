package redact

import (
	"regexp"

	"github.com/dshills/sqlgate/internal/gitctx"
)

const placeholder = "[REDACTED]"

// secretPatterns are regex heuristics for credentials that end up in SQL and
// the code around it.
var secretPatterns = []*regexp.Regexp{
	// CREATE USER / ALTER USER ... IDENTIFIED BY 'pw'
	regexp.MustCompile(`(?i)IDENTIFIED\s+BY\s+(?:'[^']*'|"[^"]*"|\S+)`),
	// PASSWORD 'pw' in CREATE ROLE and friends
	regexp.MustCompile(`(?i)\bPASSWORD\s+'[^']{4,}'`),
	// Connection URLs with inline credentials
	regexp.MustCompile(`(?i)\b(?:jdbc:)?[a-z][a-z0-9+]*://[^\s/:'"@]+:[^\s'"@]+@`),
	// Generic API keys
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// Secrets, tokens and passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Dify app keys and OpenAI-style keys
	regexp.MustCompile(`\b(?:app|sk)-[A-Za-z0-9]{20,}`),
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	for _, pat := range secretPatterns {
		text = pat.ReplaceAllLiteralString(text, placeholder)
	}
	return text
}

// ShouldRedactPath reports whether path matches any of the redaction
// patterns.
func ShouldRedactPath(path string, patterns []string) bool {
	return gitctx.MatchesAny(path, patterns)
}
