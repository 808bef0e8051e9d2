package repl

import (
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{"help", "list", "edit", "check", "clear", "quit"}

// isWordBoundary reports whether r delimits identifiers in an expression.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%', '~',
		'<', '>', '=', '!',
		'|', ',', ':', '"', '\'':
		return true
	}

	return false
}

// wordBounds returns the word at cursor and its byte boundaries within
// input. The word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	for start = cursor; start > 0; {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	for end = cursor; end < len(input); {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the attribute chain leading up to the word starting at
// wordStart. For "x ~ user.address.ci" and the word "ci" it returns
// "user.address". Top-level words have no parent.
func parentPath(input string, wordStart int) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	prefix = strings.TrimRight(prefix, ".")

	pos := len(prefix)

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return strings.TrimSpace(prefix[pos:])
}

// completionKind is the syntactic position of the word being completed.
type completionKind int

const (
	completeName completionKind = iota
	completeMember
	completeFilter
	completeTest
)

// classify returns the kind of completion expected at wordStart.
func classify(input string, wordStart int) completionKind {
	prefix := strings.TrimRightFunc(input[:wordStart], unicode.IsSpace)

	switch {
	case strings.HasSuffix(input[:wordStart], "."):
		return completeMember
	case strings.HasSuffix(prefix, "|"):
		return completeFilter
	}

	fields := strings.FieldsFunc(prefix, func(r rune) bool {
		return unicode.IsSpace(r) || r == '(' || r == '{' || r == '%'
	})

	n := len(fields)
	if n > 0 && fields[n-1] == "not" {
		n--
	}

	if n > 0 && fields[n-1] == "is" {
		return completeTest
	}

	return completeName
}

// completionsFor returns the completions valid for the word at wordStart.
func (m model) completionsFor(input string, wordStart int) []string {
	machine := m.session.engine.Machine()

	switch classify(input, wordStart) {
	case completeFilter:
		return machine.Filters()

	case completeTest:
		return machine.Tests()

	case completeMember:
		v, ok := m.session.member(parentPath(input, wordStart))
		if !ok {
			return nil
		}

		if mv, ok := v.(map[string]any); ok {
			return slices.Sorted(maps.Keys(mv))
		}

		return nil
	}

	names := m.session.variables()
	for _, sig := range m.session.macros() {
		names = append(names, sig.Name)
	}

	return append(names, machine.Globals()...)
}

// computeMatches returns the fuzzy matches for the word at the cursor,
// ranked best-first, with the word boundaries. An empty word completes only
// after an attribute dot or a filter bar.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()

	word, wordStart, wordEnd := wordBounds(input, m.input.Position())

	if m.mode == modeCtrl {
		if word == "" {
			return nil, nil, wordStart, wordEnd
		}

		candidates = ctrlCommands
	} else {
		candidates = m.completionsFor(input, wordStart)

		if word == "" {
			if classify(input, wordStart) == completeName || len(candidates) == 0 {
				return nil, nil, wordStart, wordEnd
			}

			matches = make(fuzzy.Matches, len(candidates))
			for i, c := range candidates {
				matches[i] = fuzzy.Match{Str: c, Index: i}
			}

			return matches, candidates, wordStart, wordEnd
		}
	}

	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), candidates, wordStart, wordEnd
}

// renderCandidateBar builds the single-line completion bar, ellipsized to
// fit width.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	callable func(string) bool,
	width int,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	ellipsis := hintStyle.Render("...")
	reserve := lipgloss.Width(ellipsis) + lipgloss.Width(sep)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx, callable(match.Str))

		w := lipgloss.Width(rendered)
		if i > 0 {
			w += lipgloss.Width(sep)
		}

		if i > 0 && i < len(matches)-1 && used+w+reserve > width {
			b.WriteString(sep + ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += w
	}

	return b.String()
}

// renderCandidate renders a candidate with its matched characters
// highlighted. Callables get a "()" suffix that is not inserted on
// completion.
func renderCandidate(match fuzzy.Match, selected, callable bool) string {
	base, highlight := suggestionStyle, matchStyle
	if selected {
		base, highlight = selectedStyle, selectedMatchStyle
	}

	var b strings.Builder

	for i, r := range match.Str {
		if slices.Contains(match.MatchedIndexes, i) {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	if callable {
		b.WriteString(base.Render("()"))
	}

	return b.String()
}

// isCallable reports whether name is a macro or a global function.
func (m model) isCallable(name string) bool {
	if _, ok := m.session.sigs.Lookup(name); ok {
		return true
	}

	_, ok := builtinSignatures[name]

	return ok
}
