package signal

import (
	"regexp"
	"sort"
)

// Mode selects how a vocabulary term is matched against text.
type Mode int

const (
	// WholeWord matches a term only when it is not glued to other letters or
	// digits on either side. Boundaries are Unicode-aware so terms such as
	// "più corta" work.
	WholeWord Mode = iota
	// Substring matches a term anywhere in the text.
	Substring
)

// Term is a vocabulary entry. Label is the canonical keyword echoed back to
// the customer; it defaults to Text.
type Term struct {
	Text  string
	Label string
}

// Match is one occurrence of a vocabulary term in a text.
type Match struct {
	Vocabulary string
	Term       string
	Label      string
	Start      int
	End        int
}

// Vocabulary is a named set of terms sharing one match mode.
type Vocabulary struct {
	Name  string
	Mode  Mode
	terms []Term
	res   []*regexp.Regexp
}

// NewVocabulary compiles terms once. Terms are expected in lower case.
func NewVocabulary(name string, mode Mode, terms ...Term) *Vocabulary {
	v := &Vocabulary{Name: name, Mode: mode, terms: make([]Term, len(terms)), res: make([]*regexp.Regexp, len(terms))}
	copy(v.terms, terms)
	for i, t := range terms {
		if t.Label == "" {
			v.terms[i].Label = t.Text
		}
		quoted := regexp.QuoteMeta(t.Text)
		if mode == WholeWord {
			v.res[i] = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(` + quoted + `)(?:[^\p{L}\p{N}]|$)`)
		} else {
			v.res[i] = regexp.MustCompile(`(?i)(` + quoted + `)`)
		}
	}
	return v
}

// Words builds unlabelled terms.
func Words(words ...string) []Term {
	out := make([]Term, len(words))
	for i, w := range words {
		out[i] = Term{Text: w}
	}
	return out
}

// Labelled builds terms that all echo back as label.
func Labelled(label string, words ...string) []Term {
	out := make([]Term, len(words))
	for i, w := range words {
		out[i] = Term{Text: w, Label: label}
	}
	return out
}

// Terms returns a copy of the vocabulary's terms.
func (v *Vocabulary) Terms() []Term {
	out := make([]Term, len(v.terms))
	copy(out, v.terms)
	return out
}

// Match reports whether any term occurs in text.
func (v *Vocabulary) Match(text string) bool {
	if text == "" {
		return false
	}
	for _, re := range v.res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// FindAll returns the first occurrence of every matching term, ordered by
// position, with overlapping shorter matches removed.
func (v *Vocabulary) FindAll(text string) []Match {
	return FindAll(text, v)
}

func (v *Vocabulary) find(text string) []Match {
	if text == "" {
		return nil
	}
	var out []Match
	for i, re := range v.res {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		out = append(out, Match{
			Vocabulary: v.Name,
			Term:       v.terms[i].Text,
			Label:      v.terms[i].Label,
			Start:      loc[2],
			End:        loc[3],
		})
	}
	return out
}

// FindAll matches text against several vocabularies at once. Matches are
// returned in encounter order; where two matches overlap, the one that starts
// first wins and ties go to the longer span, so "dark brown" hides "brown".
func FindAll(text string, vocabs ...*Vocabulary) []Match {
	var all []Match
	for _, v := range vocabs {
		all = append(all, v.find(text)...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End-all[i].Start > all[j].End-all[j].Start
	})

	out := all[:0]
	end := -1
	for _, m := range all {
		if m.Start < end {
			continue
		}
		out = append(out, m)
		end = m.End
	}
	return out
}

// UniqueLabels returns the distinct labels of matches in order, capped at limit
// (limit <= 0 means no cap).
func UniqueLabels(matches []Match, limit int) []string {
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if seen[m.Label] {
			continue
		}
		seen[m.Label] = true
		out = append(out, m.Label)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
