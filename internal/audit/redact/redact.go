// Package redact scrubs credential-shaped substrings out of audit data
// before it is hashed and written, following the teacher's layered
// "detect known secret shapes, replace with a short non-recoverable
// prefix" approach used across its secrets/credential packages.
package redact

import "regexp"

// rule pairs a name (for documentation/debugging only) with the pattern it
// matches.
type rule struct {
	name    string
	pattern *regexp.Regexp
}

// rules is the credential-family catalogue. Order matters only in that a
// string can match more than one rule; each match is replaced
// independently as the regexp engine walks the string left to right.
var rules = []rule{
	{"generic-api-key", regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`)},
	{"github-token", regexp.MustCompile(`gh[oprsu]_[A-Za-z0-9]{20,}`)},
	{"slack-token", regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`)},
	{"aws-access-key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"bearer-token", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]{10,}=*`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)},
	{"credentialed-uri", regexp.MustCompile(`\w+://[^:\s/@]+:[^@\s/]+@`)},
	{"pem-private-key", regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`)},
}

// redactString replaces every regex match in s with the match's first four
// characters followed by "****". The original match is never recoverable
// from the output.
func redactString(s string) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllStringFunc(s, func(match string) string {
			prefixLen := 4
			if len(match) < prefixLen {
				prefixLen = len(match)
			}
			return match[:prefixLen] + "****"
		})
	}
	return s
}

// Redact returns a deep copy of value with every string it contains passed
// through redactString. Numbers, booleans, and nil pass through unchanged.
// Structs are redacted by first round-tripping them into the same
// string/map/slice shape audit entries are canonicalized into, so this is
// safe to call on both map[string]any data and typed structs like
// audit.CredentialAccessData.
func Redact(value any) any {
	return redactValue(value)
}

func redactValue(value any) any {
	switch v := value.(type) {
	case string:
		return redactString(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = redactValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = redactValue(val)
		}
		return out
	default:
		return redactStruct(value)
	}
}
