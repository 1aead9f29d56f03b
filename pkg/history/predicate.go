package history

import (
	"slices"
	"time"
)

// Predicate is one atomic filter condition. The set of predicates is closed:
// storage backends switch over the concrete types exhaustively.
type Predicate interface {
	// Target returns the field the predicate constrains.
	Target() Field

	// Match evaluates the predicate against a single entity.
	Match(e *HistoricEntity) bool

	predicate()
}

// Equals matches entities whose string field equals Value.
type Equals struct {
	Field Field
	Value string
}

// In matches entities whose string field is one of Values.
type In struct {
	Field  Field
	Values []string
}

// NotIn matches entities whose string field is absent or not one of Values.
type NotIn struct {
	Field  Field
	Values []string
}

// Like matches a string field against a pattern where % matches any run of
// characters and _ matches exactly one. A backslash escapes the next
// character. ASCII letters compare case-insensitively.
type Like struct {
	Field   Field
	Pattern string
}

// TimeAtOrAfter matches entities whose time field is >= Time.
type TimeAtOrAfter struct {
	Field Field
	Time  time.Time
}

// TimeAtOrBefore matches entities whose time field is <= Time.
type TimeAtOrBefore struct {
	Field Field
	Time  time.Time
}

// IntAtLeast matches entities whose integer field is >= Value.
type IntAtLeast struct {
	Field Field
	Value int64
}

// IntAtMost matches entities whose integer field is <= Value.
type IntAtMost struct {
	Field Field
	Value int64
}

// IsNull matches entities where the field has no value.
type IsNull struct {
	Field Field
}

// NotNull matches entities where the field has a value.
type NotNull struct {
	Field Field
}

func (p Equals) Target() Field         { return p.Field }
func (p In) Target() Field             { return p.Field }
func (p NotIn) Target() Field          { return p.Field }
func (p Like) Target() Field           { return p.Field }
func (p TimeAtOrAfter) Target() Field  { return p.Field }
func (p TimeAtOrBefore) Target() Field { return p.Field }
func (p IntAtLeast) Target() Field     { return p.Field }
func (p IntAtMost) Target() Field      { return p.Field }
func (p IsNull) Target() Field         { return p.Field }
func (p NotNull) Target() Field        { return p.Field }

func (Equals) predicate()         {}
func (In) predicate()             {}
func (NotIn) predicate()          {}
func (Like) predicate()           {}
func (TimeAtOrAfter) predicate()  {}
func (TimeAtOrBefore) predicate() {}
func (IntAtLeast) predicate()     {}
func (IntAtMost) predicate()      {}
func (IsNull) predicate()         {}
func (NotNull) predicate()        {}

func (p Equals) Match(e *HistoricEntity) bool {
	v, ok := e.StringValue(p.Field)
	return ok && v == p.Value
}

func (p In) Match(e *HistoricEntity) bool {
	v, ok := e.StringValue(p.Field)
	return ok && slices.Contains(p.Values, v)
}

func (p NotIn) Match(e *HistoricEntity) bool {
	v, ok := e.StringValue(p.Field)
	return !ok || !slices.Contains(p.Values, v)
}

func (p Like) Match(e *HistoricEntity) bool {
	v, ok := e.StringValue(p.Field)
	return ok && likeMatch(v, p.Pattern)
}

func (p TimeAtOrAfter) Match(e *HistoricEntity) bool {
	v, ok := e.TimeValue(p.Field)
	return ok && !v.Before(p.Time)
}

func (p TimeAtOrBefore) Match(e *HistoricEntity) bool {
	v, ok := e.TimeValue(p.Field)
	return ok && !v.After(p.Time)
}

func (p IntAtLeast) Match(e *HistoricEntity) bool {
	v, ok := e.IntValue(p.Field)
	return ok && v >= p.Value
}

func (p IntAtMost) Match(e *HistoricEntity) bool {
	v, ok := e.IntValue(p.Field)
	return ok && v <= p.Value
}

func (p IsNull) Match(e *HistoricEntity) bool {
	return !e.Present(p.Field)
}

func (p NotNull) Match(e *HistoricEntity) bool {
	return e.Present(p.Field)
}

// likeToken is one element of a compiled LIKE pattern.
type likeToken struct {
	any, one bool
	r        rune
}

// likeMatch implements SQL LIKE with a backslash escape, folding ASCII case
// the same way SQLite does. It runs in O(len(s)*len(pattern)) by only ever
// backtracking to the most recent %.
func likeMatch(s, pattern string) bool {
	sr := []rune(s)
	pr := []rune(pattern)
	toks := make([]likeToken, 0, len(pr))
	for i := 0; i < len(pr); i++ {
		switch c := pr[i]; {
		case c == '%':
			if n := len(toks); n == 0 || !toks[n-1].any {
				toks = append(toks, likeToken{any: true})
			}
		case c == '_':
			toks = append(toks, likeToken{one: true})
		case c == '\\' && i+1 < len(pr):
			i++
			toks = append(toks, likeToken{r: foldASCII(pr[i])})
		default:
			toks = append(toks, likeToken{r: foldASCII(c)})
		}
	}

	si, ti := 0, 0
	star, mark := -1, 0
	for si < len(sr) {
		switch {
		case ti < len(toks) && toks[ti].any:
			star, mark = ti, si
			ti++
		case ti < len(toks) && (toks[ti].one || toks[ti].r == foldASCII(sr[si])):
			si++
			ti++
		case star >= 0:
			mark++
			si = mark
			ti = star + 1
		default:
			return false
		}
	}
	for ti < len(toks) && toks[ti].any {
		ti++
	}
	return ti == len(toks)
}

func foldASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// MatchAll reports whether e satisfies every conjunct and, for each non-empty
// or-group, at least one of its predicates. An empty or-group places no
// constraint on the result.
func (p *Plan) MatchAll(e *HistoricEntity) bool {
	if e.Kind != p.Kind {
		return false
	}
	for _, c := range p.Conjuncts {
		if !c.Match(e) {
			return false
		}
	}
	for _, group := range p.OrGroups {
		if len(group) == 0 {
			continue
		}
		matched := false
		for _, c := range group {
			if c.Match(e) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
