// Package text implements the text normalization applied to news articles before feature
// extraction.
//
// Normalize runs, in order: lowercase; drop every character that is not an ASCII letter or
// whitespace; split on whitespace; drop stopwords; lemmatize; join with single spaces.
//
//	n := text.NewNormalizer()
//	n.Normalize("Breaking News!!") // "breaking news"
//
// The output only contains lowercase ASCII letters separated by single spaces, and
// Normalize(Normalize(s)) == Normalize(s).
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer cleans raw article text. It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	stopWords   StopWords
	lemmatizer  Lemmatizer
	foldAccents bool
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithStopWords replaces the English stopword set.
func WithStopWords(sw StopWords) NormalizerOption {
	return func(n *Normalizer) {
		n.stopWords = sw
	}
}

// WithLemmatizer replaces the noun lemmatizer.
func WithLemmatizer(l Lemmatizer) NormalizerOption {
	return func(n *Normalizer) {
		n.lemmatizer = l
	}
}

// WithAccentFolding decomposes accented letters and drops the combining marks before the letter
// filter, so "café" becomes "cafe" instead of "caf".
func WithAccentFolding(fold bool) NormalizerOption {
	return func(n *Normalizer) {
		n.foldAccents = fold
	}
}

// NewNormalizer returns a Normalizer using the English stopword list and NounLemmatizer.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		stopWords:  EnglishStopWords(),
		lemmatizer: NewNounLemmatizer(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the normalized form of s. Empty input yields empty output.
func (n *Normalizer) Normalize(s string) string {
	s = strings.ToLower(s)
	if n.foldAccents {
		// Compatibility decomposition can produce capitals (e.g. from letterlike symbols).
		s = strings.ToLower(foldAccents(s))
	}
	s = strings.Map(keepLettersAndSpace, s)

	tokens := strings.Fields(s)
	out := tokens[:0]
	for _, tok := range tokens {
		if n.stopWords.Contains(tok) {
			continue
		}
		lemma := n.lemmatizer.Lemmatize(tok)
		// A lemma that is itself a stopword would vanish on a second pass.
		if n.stopWords.Contains(lemma) {
			lemma = tok
		}
		out = append(out, lemma)
	}
	return strings.Join(out, " ")
}

// NormalizeAll normalizes every element of texts into a new slice.
func (n *Normalizer) NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = n.Normalize(t)
	}
	return out
}

func keepLettersAndSpace(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return r
	case unicode.IsSpace(r):
		return ' '
	}
	return -1
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
