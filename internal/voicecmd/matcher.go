// Package voicecmd turns finalized Spanish transcript segments into device
// commands ("enciende la luz", "apaga", "salir").
//
// Recognition output is noisy, so words are compared the way names are
// corrected elsewhere in speech pipelines: Double Metaphone codes select
// phonetic candidates, and Jaro-Winkler similarity ranks them. Words without
// a phonetic candidate fall back to a stricter pure Jaro-Winkler match.
package voicecmd

import (
	"cmp"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

// Command is a recognized device command.
type Command string

const (
	CommandOn   Command = "encender"
	CommandOff  Command = "apagar"
	CommandExit Command = "salir"
)

const (
	defaultPhoneticThreshold = 0.80
	defaultFuzzyThreshold    = 0.88
	minTokenLen              = 3
)

// DefaultVocabulary maps each command to the spoken forms that trigger it.
var DefaultVocabulary = map[Command][]string{
	CommandOn:   {"encender", "enciende", "prender", "prende", "prendé"},
	CommandOff:  {"apagar", "apaga", "apagá"},
	CommandExit: {"salir", "terminar", "termina"},
}

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithVocabulary replaces the trigger words.
func WithVocabulary(v map[Command][]string) Option {
	return func(m *Matcher) { m.vocab = v }
}

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically matching word. Default: 0.80.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) { m.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score when no phonetic
// match exists. Default: 0.88.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) { m.fuzzyThreshold = threshold }
}

// Match is one command found in a segment.
type Match struct {
	Command    Command
	Word       string
	Confidence float64
}

type trigger struct {
	cmd   Command
	word  string
	codes map[string]struct{}
}

// Matcher finds commands in text. It is read-only after construction and
// safe for concurrent use.
type Matcher struct {
	vocab             map[Command][]string
	phoneticThreshold float64
	fuzzyThreshold    float64
	triggers          []trigger
}

// NewMatcher returns a Matcher for DefaultVocabulary unless overridden.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		vocab:             DefaultVocabulary,
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	for _, cmd := range commandOrder(m.vocab) {
		for _, w := range m.vocab[cmd] {
			w = normalize(w)
			m.triggers = append(m.triggers, trigger{cmd: cmd, word: w, codes: codes(w)})
		}
	}
	return m
}

// Find returns the commands in text in spoken order.
func (m *Matcher) Find(text string) []Match {
	var out []Match
	for _, tok := range strings.Fields(normalize(text)) {
		if len([]rune(tok)) < minTokenLen {
			continue
		}
		if mt, ok := m.matchToken(tok); ok {
			out = append(out, mt)
		}
	}
	return out
}

// First returns the first command in text.
func (m *Matcher) First(text string) (Match, bool) {
	found := m.Find(text)
	if len(found) == 0 {
		return Match{}, false
	}
	return found[0], true
}

func (m *Matcher) matchToken(tok string) (Match, bool) {
	tokCodes := codes(tok)

	var (
		best         Match
		bestPhonetic bool
	)
	for _, tr := range m.triggers {
		score := matchr.JaroWinkler(tok, tr.word, false)
		if overlap(tokCodes, tr.codes) {
			if score >= m.phoneticThreshold && (!bestPhonetic || score > best.Confidence) {
				best = Match{Command: tr.cmd, Word: tok, Confidence: score}
				bestPhonetic = true
			}
		} else if !bestPhonetic && score >= m.fuzzyThreshold && score > best.Confidence {
			best = Match{Command: tr.cmd, Word: tok, Confidence: score}
		}
	}
	return best, best.Command != ""
}

// commandOrder lists the vocabulary's commands with the built-in ones first,
// in declaration order, then any others by name. Equal scores resolve to the
// earlier command.
func commandOrder(vocab map[Command][]string) []Command {
	rank := func(c Command) int {
		switch c {
		case CommandOn:
			return 0
		case CommandOff:
			return 1
		case CommandExit:
			return 2
		}
		return 3
	}
	cmds := make([]Command, 0, len(vocab))
	for c := range vocab {
		cmds = append(cmds, c)
	}
	slices.SortFunc(cmds, func(a, b Command) int {
		if r := cmp.Compare(rank(a), rank(b)); r != 0 {
			return r
		}
		return strings.Compare(string(a), string(b))
	})
	return cmds
}

func codes(word string) map[string]struct{} {
	out := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		out[p] = struct{}{}
	}
	if s != "" {
		out[s] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
	",", " ", ".", " ", "!", " ", "¡", " ", "?", " ", "¿", " ",
)

// normalize lowercases, folds Spanish accents and strips punctuation.
func normalize(s string) string {
	return accentFolder.Replace(strings.ToLower(s))
}
