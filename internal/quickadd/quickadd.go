// Package quickadd turns one line of quick-add text into a task draft.
//
// Two inline tokens are recognized anywhere in the line:
//
//	!N          priority, N a single digit 1-5
//	due:DATE    due date, DATE in YYYY-MM-DD form
//
// Anything that is not a well-formed token stays in the title as literal
// text, so parsing never fails.
package quickadd

import (
	"strings"
	"time"

	"github.com/dori/vikta/internal/model"
)

// Parse scans raw once, left to right, consuming each accepted token as it
// is found and continuing after it. Removed text is never re-examined, and
// the first occurrence of each token kind wins; later ones stay literal.
// The due date is kept at date precision (UTC midnight); end-of-day wire
// semantics are applied at transmission, not here.
//
// An empty title is legal here. Rejecting it is the submission boundary's
// job, not the parser's.
func Parse(raw string) model.TaskDraft {
	var draft model.TaskDraft

	rs := []rune(raw)
	out := make([]rune, 0, len(rs))
	i := 0
	for i < len(rs) {
		if draft.Priority == 0 {
			if p, ok := matchPriority(rs, i); ok {
				draft.Priority = p
				i = skipToken(rs, out, i+2)
				continue
			}
		}
		if draft.DueDate == nil {
			if d, width, ok := matchDue(rs, i); ok {
				draft.DueDate = &d
				i = skipToken(rs, out, i+width)
				continue
			}
		}
		out = append(out, rs[i])
		i++
	}

	draft.Title = strings.TrimSpace(string(out))
	return draft
}

// skipToken advances past a consumed token ending at pos. When the token had
// a space on both sides, one of them goes with it so the removal site never
// produces a doubled space.
func skipToken(rs, out []rune, pos int) int {
	if len(out) > 0 && out[len(out)-1] == ' ' && pos < len(rs) && rs[pos] == ' ' {
		return pos + 1
	}
	return pos
}

// matchPriority reports a priority token at rs[i]: '!' followed by a single
// digit 1-5. A digit outside that range, or a second digit right after (as
// in "!34"), means no token.
func matchPriority(rs []rune, i int) (int, bool) {
	if rs[i] != '!' || i+1 >= len(rs) {
		return 0, false
	}
	d := rs[i+1]
	if d < '1' || d > '5' {
		return 0, false
	}
	if i+2 < len(rs) && isDigit(rs[i+2]) {
		return 0, false
	}
	return int(d - '0'), true
}

// dueLen is the width of a full due token: "due:" plus "YYYY-MM-DD".
const dueLen = 4 + 10

// matchDue reports a due token at rs[i]: the literal "due:" immediately
// followed by a valid YYYY-MM-DD calendar date, with a word boundary on both
// sides. A malformed or impossible date (month 13, day 40) means no token.
func matchDue(rs []rune, i int) (time.Time, int, bool) {
	if i > 0 && isWord(rs[i-1]) {
		return time.Time{}, 0, false
	}
	if i+dueLen > len(rs) {
		return time.Time{}, 0, false
	}
	if string(rs[i:i+4]) != "due:" {
		return time.Time{}, 0, false
	}
	ds := rs[i+4 : i+dueLen]
	for pos, r := range ds {
		if pos == 4 || pos == 7 {
			if r != '-' {
				return time.Time{}, 0, false
			}
			continue
		}
		if !isDigit(r) {
			return time.Time{}, 0, false
		}
	}
	if i+dueLen < len(rs) && isWord(rs[i+dueLen]) {
		return time.Time{}, 0, false
	}
	d, err := time.Parse("2006-01-02", string(ds))
	if err != nil {
		return time.Time{}, 0, false
	}
	return d, dueLen, true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// isWord matches regexp's \w class.
func isWord(r rune) bool {
	return r == '_' || isDigit(r) ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
