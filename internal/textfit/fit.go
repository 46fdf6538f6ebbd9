// Package textfit fits free-form text into hard platform length budgets.
// All budgets are counted in runes, matching how the platforms count
// characters rather than bytes.
package textfit

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncationSuffix marks a word-safe truncation.
const TruncationSuffix = " […]"

// markerBudget is the width reserved at the end of every split chunk for the
// " [xx/xx]" numbering marker, wide enough for two-digit counts.
const markerBudget = 8

// continuationLead opens every chunk after the first.
const continuationLead = "… "

// FitSpec describes one platform's length accounting.
type FitSpec struct {
	// MaxLen is the platform's total character budget per message.
	MaxLen int
	// URLChars is the number of characters the platform charges for a URL.
	// Zero means the URL counts at its natural length (no link shortener).
	URLChars int
	// Sep is placed between the body and the trailing URL.
	Sep string
}

// Fit composes base + body + Sep + url, dropping trailing words from body
// until the whole message fits within MaxLen. A body that was shortened gets
// the truncation suffix appended; a body that cannot fit at all is dropped
// entirely. The result never exceeds MaxLen as the platform counts it.
func (s FitSpec) Fit(base, body, url string) string {
	urlChars := s.URLChars
	if urlChars == 0 {
		urlChars = utf8.RuneCountInString(url)
	}

	room := s.MaxLen - utf8.RuneCountInString(base) - utf8.RuneCountInString(s.Sep) - urlChars
	body = Shorten(body, room)
	if body == "" {
		return strings.TrimRight(base, " \n") + s.Sep + url
	}
	return base + body + s.Sep + url
}

// Shorten drops whitespace-delimited tokens from the end of body until it
// fits within room runes, never breaking inside a word. A shortened body
// carries the truncation suffix; when not even the first word fits the result
// is empty.
func Shorten(body string, room int) string {
	if room <= 0 {
		return ""
	}
	if utf8.RuneCountInString(body) <= room {
		return body
	}

	suffixLen := utf8.RuneCountInString(TruncationSuffix)
	for utf8.RuneCountInString(body)+suffixLen > room {
		i := strings.LastIndexByte(strings.TrimRight(body, " "), ' ')
		if i < 0 {
			return ""
		}
		body = strings.TrimRight(body[:i], " ")
	}
	return body + TruncationSuffix
}

// Split breaks body into numbered chunks of at most maxLen runes each. Every
// chunk after the first opens with a continuation ellipsis and every chunk
// closes with a " [i/n]" marker whose denominator is resolved once the total
// is known. Tokens are never broken unless a single token exceeds the chunk
// budget, in which case it is hard-wrapped. A maxLen too small to hold the
// marker and continuation lead is degenerate; the body comes back as one
// unsplit chunk.
func Split(body string, maxLen int) []string {
	body = strings.Join(strings.Fields(body), " ")
	if body == "" {
		return nil
	}
	if utf8.RuneCountInString(body) <= maxLen {
		return []string{body}
	}

	budget := maxLen - markerBudget
	leadLen := utf8.RuneCountInString(continuationLead)
	// A budget that cannot hold the continuation lead plus any text at all is
	// unusable; return the body unsplit instead of emitting oversized chunks.
	if budget <= leadLen {
		return []string{body}
	}

	// A token wider than a whole chunk cannot be placed word-safely; wrap it
	// hard so the length invariant survives.
	var toks []string
	for _, tok := range strings.Fields(body) {
		for utf8.RuneCountInString(tok) > budget-leadLen {
			head, tail := splitRunes(tok, budget-leadLen)
			toks = append(toks, head)
			tok = tail
		}
		toks = append(toks, tok)
	}

	var bodies []string
	cur := ""
	for _, tok := range toks {
		cand := appendToken(cur, tok)
		if utf8.RuneCountInString(cand) > budget {
			bodies = append(bodies, cur)
			cur = continuationLead + tok
		} else {
			cur = cand
		}
	}
	bodies = append(bodies, cur)

	n := len(bodies)
	chunks := make([]string, n)
	for i, b := range bodies {
		chunks[i] = fmt.Sprintf("%s [%d/%d]", b, i+1, n)
	}
	return chunks
}

func appendToken(cur, tok string) string {
	if cur == "" {
		return tok
	}
	return cur + " " + tok
}

func splitRunes(s string, n int) (head, tail string) {
	if n <= 0 {
		return "", s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

// JoinAuthors joins display names with commas and a final "and", matching
// the style used in post bodies: "A", "A and B", "A, B and C".
func JoinAuthors(names []string) string {
	var sb strings.Builder
	for i, name := range names {
		sb.WriteString(name)
		switch {
		case i < len(names)-2:
			sb.WriteString(", ")
		case i == len(names)-2:
			sb.WriteString(" and ")
		}
	}
	return sb.String()
}
