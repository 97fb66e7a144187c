// Package emotion turns assistant text into a playable sequence of
// expressions using keyword scoring.
package emotion

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexmascot/internal/expression"
)

// Entry is the keyword set for one emotion
type Entry struct {
	Emotion  expression.ID `yaml:"emotion"`
	Keywords []string      `yaml:"keywords"`
}

// Dictionary is the ordered list of keyword sets. Order matters: ties in
// scoring keep dictionary order.
type Dictionary struct {
	Entries []Entry `yaml:"emotions"`
}

// DefaultDictionary returns the built-in keyword sets
func DefaultDictionary() Dictionary {
	return Dictionary{Entries: []Entry{
		{Emotion: expression.Happy, Keywords: []string{
			"happy", "glad", "great", "wonderful", "delighted", "pleased", "good news", "love it", "nice",
		}},
		{Emotion: expression.Smiling, Keywords: []string{
			"thank you", "thanks", "welcome", "appreciate", "of course", "my pleasure", "cheers",
		}},
		{Emotion: expression.Surprised, Keywords: []string{
			"wow", "whoa", "can't believe", "cannot believe", "unbelievable", "no way", "omg", "surprising",
			"surprised", "unexpected", "shocking",
		}},
		{Emotion: expression.Excited, Keywords: []string{
			"amazing", "incredible", "awesome", "fantastic", "exciting", "excited", "can't wait", "thrilled",
			"let's go",
		}},
		{Emotion: expression.Confused, Keywords: []string{
			"confused", "confusing", "not sure", "unclear", "don't understand", "puzzling", "strange", "weird",
			"hmm",
		}},
		{Emotion: expression.Angry, Keywords: []string{
			"angry", "furious", "annoying", "annoyed", "hate", "frustrated", "frustrating", "ridiculous",
			"unacceptable",
		}},
		{Emotion: expression.Sad, Keywords: []string{
			"sad", "sorry", "unfortunately", "regret", "bad news", "disappointed", "miss you", "heartbroken",
		}},
		{Emotion: expression.Laughing, Keywords: []string{
			"haha", "hahaha", "lol", "lmao", "funny", "hilarious", "joke", "that's funny",
		}},
		{Emotion: expression.Skeptical, Keywords: []string{
			"doubt", "skeptical", "suspicious", "questionable", "supposedly", "allegedly", "i guess",
			"not convinced",
		}},
		{Emotion: expression.Sleepy, Keywords: []string{
			"tired", "sleepy", "yawn", "exhausted", "good night", "bedtime", "late night",
		}},
	}}
}

// LoadDictionary reads a YAML dictionary file
func LoadDictionary(path string) (Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, fmt.Errorf("read dictionary: %w", err)
	}
	var dict Dictionary
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return Dictionary{}, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	if err := dict.Validate(); err != nil {
		return Dictionary{}, fmt.Errorf("dictionary %s: %w", path, err)
	}
	return dict, nil
}

// Validate rejects unknown emotions, duplicates and empty keyword sets
func (d Dictionary) Validate() error {
	if len(d.Entries) == 0 {
		return fmt.Errorf("dictionary has no emotions")
	}
	seen := make(map[expression.ID]bool, len(d.Entries))
	for _, e := range d.Entries {
		if !e.Emotion.Valid() {
			return fmt.Errorf("%w: %q", expression.ErrUnknownExpression, e.Emotion)
		}
		if seen[e.Emotion] {
			return fmt.Errorf("emotion %q listed twice", e.Emotion)
		}
		seen[e.Emotion] = true
		if len(e.Keywords) == 0 {
			return fmt.Errorf("emotion %q has no keywords", e.Emotion)
		}
	}
	return nil
}

// matcher finds hits for one keyword
type matcher struct {
	phrase string
	word   *regexp.Regexp
}

// span is a [start, end) byte range of one hit
type span [2]int

func (m matcher) spans(lower string) []span {
	var out []span
	if m.word != nil {
		for _, loc := range m.word.FindAllStringIndex(lower, -1) {
			out = append(out, span{loc[0], loc[1]})
		}
		return out
	}
	for from := 0; from < len(lower); {
		i := strings.Index(lower[from:], m.phrase)
		if i < 0 {
			break
		}
		start := from + i
		out = append(out, span{start, start + len(m.phrase)})
		from = start + len(m.phrase)
	}
	return out
}

type compiledEntry struct {
	emotion  expression.ID
	matchers []matcher
}

// count returns the number of non-overlapping hits across every keyword of
// the entry. Longer hits claim their text first, so "that's funny" is one hit
// and not also a hit for "funny".
func (ce compiledEntry) count(lower string) int {
	var all []span
	for _, m := range ce.matchers {
		all = append(all, m.spans(lower)...)
	}
	if len(all) < 2 {
		return len(all)
	}
	sort.SliceStable(all, func(i, j int) bool {
		li, lj := all[i][1]-all[i][0], all[j][1]-all[j][0]
		if li != lj {
			return li > lj
		}
		return all[i][0] < all[j][0]
	})

	var kept []span
	for _, sp := range all {
		overlaps := false
		for _, k := range kept {
			if sp[0] < k[1] && k[0] < sp[1] {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, sp)
		}
	}
	return len(kept)
}

type compiled []compiledEntry

// compile lowers every keyword and builds its matcher. Multi-word keywords
// match by containment; single words match on word boundaries only.
func compile(d Dictionary) (compiled, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	out := make(compiled, 0, len(d.Entries))
	for _, e := range d.Entries {
		ce := compiledEntry{emotion: e.Emotion}
		for _, kw := range e.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.ContainsFunc(kw, unicode.IsSpace) {
				ce.matchers = append(ce.matchers, matcher{phrase: kw})
				continue
			}
			re, err := regexp.Compile(wordPattern(kw))
			if err != nil {
				return nil, fmt.Errorf("keyword %q: %w", kw, err)
			}
			ce.matchers = append(ce.matchers, matcher{word: re})
		}
		out = append(out, ce)
	}
	return out, nil
}

// wordPattern anchors kw on word boundaries where its edges are word
// characters; \b cannot anchor next to punctuation.
func wordPattern(kw string) string {
	pattern := regexp.QuoteMeta(kw)
	first, _ := utf8.DecodeRuneInString(kw)
	last, _ := utf8.DecodeLastRuneInString(kw)
	if isWordRune(first) {
		pattern = `\b` + pattern
	}
	if isWordRune(last) {
		pattern += `\b`
	}
	return pattern
}

func isWordRune(r rune) bool {
	return r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}
