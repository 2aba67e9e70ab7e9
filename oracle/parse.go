package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonBlockRe  = regexp.MustCompile(`(?s)\{.*\}`)
	answerRe     = regexp.MustCompile(`(?i)"answer"\s*:\s*"(\w+)"`)
	numberRe     = regexp.MustCompile(`-?\d+`)
	noneRe       = regexp.MustCompile(`(?i)\b(none|null)\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// extractJSON pulls the first {...} block out of a model reply.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	if m := jsonBlockRe.FindString(s); m != "" {
		return m
	}
	return s
}

// parseIndex reads an {"index": n|null} reply with lenient fallbacks: a bare
// number, or a none/null token. The boolean reports whether any verdict was
// recognized; NoCandidate with true means an explicit "none".
func parseIndex(raw string, n int) (int, bool) {
	var obj struct {
		Index *int `json:"index"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &obj); err == nil {
		if obj.Index == nil {
			return NoCandidate, true
		}
		if *obj.Index >= 0 && *obj.Index < n {
			return *obj.Index, true
		}
		return NoCandidate, true
	}
	if m := numberRe.FindString(raw); m != "" {
		var idx int
		if _, err := fmt.Sscanf(m, "%d", &idx); err == nil && idx >= 0 && idx < n {
			return idx, true
		}
	}
	if noneRe.MatchString(raw) {
		return NoCandidate, true
	}
	return NoCandidate, false
}

// parseAnswerJSON reads {"answer":"yes"|"no"|"unsure"}.
func parseAnswerJSON(raw string) (Answer, bool) {
	if m := answerRe.FindStringSubmatch(raw); m != nil {
		switch strings.ToLower(m[1]) {
		case "yes":
			return AnswerYes, true
		case "no":
			return AnswerNo, true
		case "unsure":
			return AnswerUnsure, true
		}
	}
	return AnswerUnsure, false
}

// parseMatchJSON reads {"match": true|false|null}.
func parseMatchJSON(raw string) Answer {
	var obj struct {
		Match *bool `json:"match"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &obj); err == nil {
		switch {
		case obj.Match == nil:
			return AnswerUnsure
		case *obj.Match:
			return AnswerYes
		default:
			return AnswerNo
		}
	}
	return parseYesNo(raw)
}

var (
	yesTokens = map[string]struct{}{
		"yes": {}, "y": {}, "true": {}, "t": {}, "1": {},
	}
	noTokens = map[string]struct{}{
		"no": {}, "n": {}, "false": {}, "f": {}, "0": {},
	}
	yesWordRe = regexp.MustCompile(`\b(yes|yeah|yep|true)\b`)
	noWordRe  = regexp.MustCompile(`\b(no|nope|not|false)\b`)
)

// parseYesNo normalizes a free-form reply to a three-valued Answer. Exported
// through ParseYesNo for callers that interpret raw user replies.
func parseYesNo(raw string) Answer {
	s := strings.ToLower(firstLine(raw))
	s = strings.Trim(s, " \t'\".,!?;:")
	if _, ok := yesTokens[s]; ok {
		return AnswerYes
	}
	if _, ok := noTokens[s]; ok {
		return AnswerNo
	}
	// word-boundary scan: a reply carrying markers of both polarities stays
	// undecided
	pos := yesWordRe.MatchString(s)
	neg := noWordRe.MatchString(s)
	if pos && !neg {
		return AnswerYes
	}
	if neg && !pos {
		return AnswerNo
	}
	return AnswerUnsure
}

// ParseYesNo interprets a raw reply (typically typed by a user) as a
// three-valued answer.
func ParseYesNo(raw string) Answer {
	return parseYesNo(raw)
}

// firstLine returns the first non-empty line, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// firstToken returns the first whitespace-delimited token.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,:;\"'")
}

// candidateDescriptions strips "id:" prefixes so only descriptions reach the
// model.
func candidateDescriptions(candidates []string) []string {
	descs := make([]string, len(candidates))
	for i, c := range candidates {
		if j := strings.Index(c, ":"); j >= 0 {
			descs[i] = strings.TrimSpace(c[j+1:])
		} else {
			descs[i] = strings.TrimSpace(c)
		}
	}
	return descs
}

// numbered renders candidates as "0. desc" lines.
func numbered(descs []string) string {
	var b strings.Builder
	for i, d := range descs {
		fmt.Fprintf(&b, "%d. %s\n", i, d)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderDialog flattens the dialog log for a prompt.
func renderDialog(dialog []Turn) string {
	if len(dialog) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for _, t := range dialog {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// normalizeSentence lowercases, removes all whitespace and trims leading and
// trailing punctuation for the exact-match fallback of ChooseBest.
func normalizeSentence(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRe.ReplaceAllString(s, "")
	return strings.Trim(s, ".,!?;:")
}
