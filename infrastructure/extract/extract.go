// Package extract parses named delimited regions out of raw language-model
// text. It knows nothing about selection or validation semantics; it only
// answers "tag name in, best-effort first matching span out".
package extract

import "strings"

// Tag returns the first well-formed <name ...>...</name> span in raw, with
// surrounding whitespace trimmed. Matching is case-insensitive, tolerates
// attributes inside the tags, and ignores any prose outside them:
// extraction is a substring search, not a full-document parse.
//
// A malformed region (unclosed tag, missing terminator) yields ok=false;
// a partial span is never silently treated as valid.
func Tag(raw, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if raw == "" || name == "" {
		return "", false
	}

	lower := strings.ToLower(raw)
	openTok := "<" + strings.ToLower(name)
	closeTok := "</" + strings.ToLower(name)

	start := findToken(lower, openTok, 0)
	if start < 0 {
		return "", false
	}

	// The open tag runs to its '>' terminator; attributes in between are
	// tolerated but another '<' means the tag was never closed.
	gt := strings.IndexByte(lower[start+len(openTok):], '>')
	if gt < 0 {
		return "", false
	}
	if strings.Contains(lower[start+len(openTok):start+len(openTok)+gt], "<") {
		return "", false
	}
	bodyStart := start + len(openTok) + gt + 1

	closeAt := findToken(lower, closeTok, bodyStart)
	if closeAt < 0 {
		return "", false
	}
	gt2 := strings.IndexByte(lower[closeAt+len(closeTok):], '>')
	if gt2 < 0 {
		return "", false
	}

	return strings.TrimSpace(raw[bodyStart:closeAt]), true
}

// findToken locates tok in s at or after from, requiring the byte that
// follows to be '>' or whitespace so that "choice" never matches inside
// "choices".
func findToken(s, tok string, from int) int {
	for from <= len(s)-len(tok) {
		i := strings.Index(s[from:], tok)
		if i < 0 {
			return -1
		}
		at := from + i
		next := at + len(tok)
		if next >= len(s) {
			return -1
		}
		switch c := s[next]; {
		case c == '>', c == ' ', c == '\t', c == '\n', c == '\r':
			return at
		default:
			from = at + 1
		}
	}
	return -1
}
