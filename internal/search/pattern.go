package search

import (
	"regexp"
	"strings"
)

// compiledPattern holds the validated matchers for one request. Immutable
// after compile; shared read-only by every worker and the GPU path.
type compiledPattern struct {
	name    *regexp.Regexp  // nil matches every name
	litName string          // set instead of name for case-sensitive literal patterns
	exts    map[string]bool // lowercase without dot; nil matches every extension
	content *regexp.Regexp  // nil = no content search

	// needle is set when content is a device-eligible pattern: a pure
	// literal, case-sensitive, under the complexity ceiling. The GPU
	// kernel only understands literal byte needles.
	needle []byte
}

// compilePatterns validates and compiles everything before any directory
// is read, so a malformed pattern fails fast instead of mid-walk.
func compilePatterns(req Request) (*compiledPattern, error) {
	cp := &compiledPattern{}

	if p := req.NamePattern; p != "" && p != "*" {
		if req.CaseSensitive && !strings.ContainsAny(p, "*?[") {
			// a plain literal is an exact substring check, no regexp
			// needed. Case-folded literals stay on the regexp because it
			// folds by Unicode rules, not by ToLower.
			cp.litName = p
		} else {
			expr := globToRegexp(p)
			if !req.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, &PatternError{Pattern: p, Err: err}
			}
			cp.name = re
		}
	}

	if len(req.Extensions) > 0 {
		cp.exts = make(map[string]bool, len(req.Extensions))
		for _, e := range req.Extensions {
			e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
			if e != "" {
				cp.exts[e] = true
			}
		}
		if len(cp.exts) == 0 {
			cp.exts = nil
		}
	}

	if req.ContentPattern != "" {
		expr := req.ContentPattern
		if !req.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, &PatternError{Pattern: req.ContentPattern, Err: err}
		}
		cp.content = re
		cp.needle = deviceNeedle(re, req)
	}

	return cp, nil
}

// deviceNeedle extracts the literal the GPU kernel can search for, or nil
// when the pattern must stay on CPU. Case-insensitive patterns stay on CPU
// because the kernel compares raw bytes while regexp folds case by Unicode
// rules; offloading them would break CPU/GPU position parity.
func deviceNeedle(re *regexp.Regexp, req Request) []byte {
	if !req.CaseSensitive {
		return nil
	}
	if patternComplexity(req.ContentPattern) > maxGPUPatternComplexity {
		return nil
	}
	lit, complete := re.LiteralPrefix()
	if !complete || lit == "" {
		return nil
	}
	return []byte(lit)
}

// patternComplexity is a crude weight of a regex: group, class and repeat
// openers plus escapes. Anything heavy is cheaper to run through the CPU
// regex engine than to translate for the device.
func patternComplexity(pattern string) int {
	return strings.Count(pattern, "(") +
		strings.Count(pattern, "[") +
		strings.Count(pattern, "{") +
		strings.Count(pattern, `\`)/2
}

// matchName applies the extension set and the name pattern to a basename.
func (p *compiledPattern) matchName(base, ext string) bool {
	if p.exts != nil && !p.exts[ext] {
		return false
	}
	if p.litName != "" {
		return strings.Contains(base, p.litName)
	}
	if p.name != nil && !p.name.MatchString(base) {
		return false
	}
	return true
}

// globToRegexp translates a shell-style glob into a regexp, done once at
// compile time. A pattern without metacharacters degrades to an unanchored
// literal, so "report" finds "monthly_report_v2.txt".
func globToRegexp(glob string) string {
	if !strings.ContainsAny(glob, "*?[") {
		return regexp.QuoteMeta(glob)
	}

	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			j := i + 1
			if j < len(glob) && (glob[j] == '!' || glob[j] == '^') {
				j++
			}
			if j < len(glob) && glob[j] == ']' {
				j++
			}
			for j < len(glob) && glob[j] != ']' {
				j++
			}
			if j >= len(glob) {
				// unterminated class, treat the bracket literally
				b.WriteString(`\[`)
				continue
			}
			class := glob[i+1 : j]
			b.WriteByte('[')
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString(class)
			b.WriteByte(']')
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	return b.String()
}
