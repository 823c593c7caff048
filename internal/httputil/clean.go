// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import "strings"

// StripTags removes markup tags from s and collapses the remaining
// whitespace to single spaces. It handles the JATS fragments Crossref
// embeds in abstracts and the HTML returned by enrichment scrapes; it is
// a cleaner, not a parser, so malformed markup degrades to text rather
// than erroring.
func StripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	out := b.String()
	for entity, repl := range htmlEntities {
		out = strings.ReplaceAll(out, entity, repl)
	}
	return strings.Join(strings.Fields(out), " ")
}

// htmlEntities covers the entities that actually show up in provider
// abstracts; anything rarer passes through literally.
var htmlEntities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
	"&apos;": "'",
	"&nbsp;": " ",
}

// ExtractJSONArray returns the first balanced top-level JSON array in s,
// tolerating prose before and after it. String literals and escapes are
// respected so brackets inside values do not unbalance the scan. The
// second return value is false when no balanced array exists.
func ExtractJSONArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
