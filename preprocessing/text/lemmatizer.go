package text

import (
	"sort"
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"

	"github.com/ezoic/newsclf/pkg/log"
)

// Lemmatizer reduces a lowercase token to a base form.
type Lemmatizer interface {
	Lemmatize(word string) string
}

// Dictionary maps an inflected form to its dictionary base forms. *golem.Lemmatizer implements it.
type Dictionary interface {
	InDict(word string) bool
	Lemmas(word string) []string
}

// NounLemmatizer reduces plural nouns to their singular dictionary form.
//
// Only tokens with a plural noun ending are considered. The irregular and invariant tables are
// consulted first, then the dictionary. Words the dictionary does not know are detached by suffix,
// and a candidate is only accepted when the dictionary knows it, so unknown proper nouns such as
// "dallas" stay intact.
//
// Lemmatize is idempotent: Lemmatize(Lemmatize(w)) == Lemmatize(w).
type NounLemmatizer struct {
	dict      Dictionary
	irregular map[string]string
	invariant map[string]struct{}
}

var irregularNouns = map[string]string{
	"children":  "child",
	"men":       "man",
	"women":     "woman",
	"people":    "person",
	"mice":      "mouse",
	"geese":     "goose",
	"feet":      "foot",
	"teeth":     "tooth",
	"lives":     "life",
	"wives":     "wife",
	"knives":    "knife",
	"leaves":    "leaf",
	"wolves":    "wolf",
	"halves":    "half",
	"thieves":   "thief",
	"shelves":   "shelf",
	"criteria":  "criterion",
	"phenomena": "phenomenon",
	"analyses":  "analysis",
	"crises":    "crisis",
	"theses":    "thesis",
	"bases":     "basis",
	"indices":   "index",
	"matrices":  "matrix",
	"vertices":  "vertex",
	"media":     "medium",
	"oxen":      "ox",
	"movies":    "movie",
	"cookies":   "cookie",
	"zombies":   "zombie",
	"calories":  "calorie",
	"rookies":   "rookie",
	"selfies":   "selfie",
	"aches":     "ache",
	"headaches": "headache",
	"niches":    "niche",
	"caches":    "cache",
}

// Words ending in s that are already base forms.
var invariantNouns = []string{
	"news", "series", "species", "politics", "economics", "physics", "mathematics", "ethics",
	"statistics", "athletics", "aerobics", "genetics", "logistics", "tactics", "analysis",
	"crisis", "thesis", "basis", "diagnosis", "emphasis", "hypothesis", "synopsis", "oasis",
	"virus", "campus", "census", "bonus", "status", "focus", "consensus", "stimulus", "apparatus",
	"corpus", "genus", "radius", "nexus", "chaos", "cosmos", "ethos", "pathos", "bias", "alias",
	"atlas", "canvas", "always", "perhaps", "whereas", "afterwards", "towards", "besides",
	"nevertheless", "thus", "plus", "minus", "yes", "unless", "various", "previous", "serious",
	"famous", "dangerous", "numerous", "obvious", "anonymous", "enormous", "tremendous",
	"nervous", "religious", "conscious", "ambitious", "generous", "curious", "jealous",
	"glamorous", "mysterious", "ridiculous", "christmas", "texas", "kansas", "arkansas",
	"paris", "brussels", "athens", "wales", "mars", "venus", "isis", "hamas", "trousers",
	"scissors", "glasses", "clothes", "headquarters", "means", "whereabouts", "sometimes",
	"nowadays", "overseas", "lens", "gas", "bus", "pus", "omen", "amen", "abdomen", "specimen",
	"semen", "regimen", "stamen", "acumen", "yemen", "ramen",
}

// Suffix detachments tried in order on words the dictionary does not list.
var detachments = []struct{ suffix, replace string }{
	{"ies", "y"},
	{"men", "man"},
	{"s", ""},
	{"es", ""},
}

var (
	englishOnce sync.Once
	englishDict Dictionary
)

// englishDictionary loads the embedded golem English dictionary once. It returns nil when the
// dictionary cannot be decoded.
func englishDictionary() Dictionary {
	englishOnce.Do(func() {
		lem, err := golem.New(en.New())
		if err != nil {
			log.GetLoggerWithName("NounLemmatizer").Warn("English dictionary unavailable, using suffix rules only",
				"error", err)
			return
		}
		englishDict = lem
	})
	return englishDict
}

// NewNounLemmatizer returns a NounLemmatizer backed by the golem English dictionary.
func NewNounLemmatizer() *NounLemmatizer {
	return NewNounLemmatizerWithDictionary(englishDictionary())
}

// NewNounLemmatizerWithDictionary returns a NounLemmatizer using dict. A nil dict falls back to
// the suffix rules alone.
func NewNounLemmatizerWithDictionary(dict Dictionary) *NounLemmatizer {
	inv := make(map[string]struct{}, len(invariantNouns))
	for _, w := range invariantNouns {
		inv[w] = struct{}{}
	}
	return &NounLemmatizer{dict: dict, irregular: irregularNouns, invariant: inv}
}

// Lemmatize returns the singular form of word, or word itself when it is not a plural noun.
// Steps are applied until the word stops changing. On a cycle the lexically smallest word of
// the cycle is returned.
func (l *NounLemmatizer) Lemmatize(word string) string {
	pos := map[string]int{word: 0}
	path := []string{word}
	for {
		next := l.step(word)
		if next == word {
			return word
		}
		if i, ok := pos[next]; ok {
			cycle := append([]string(nil), path[i:]...)
			sort.Strings(cycle)
			return cycle[0]
		}
		pos[next] = len(path)
		path = append(path, next)
		word = next
	}
}

func (l *NounLemmatizer) step(word string) string {
	if lemma, ok := l.irregular[word]; ok {
		return lemma
	}
	if len(word) <= 3 || !pluralEnding(word) {
		return word
	}
	if _, ok := l.invariant[word]; ok {
		return word
	}
	if l.dict == nil {
		return ruleLemma(word)
	}

	if l.dict.InDict(word) {
		lemmas := l.dict.Lemmas(word)
		if len(lemmas) == 0 {
			return word
		}
		for _, lemma := range lemmas {
			if lemma == word {
				return word
			}
		}
		// Prefer the lemma a noun suffix detachment explains, e.g. "lies" -> "lie".
		for _, cand := range candidates(word) {
			for _, lemma := range lemmas {
				if lemma == cand {
					return lemma
				}
			}
		}
		return lemmas[0]
	}

	for _, cand := range candidates(word) {
		if l.dict.InDict(cand) {
			return cand
		}
	}
	return word
}

func pluralEnding(word string) bool {
	switch {
	case strings.HasSuffix(word, "ss"),
		strings.HasSuffix(word, "us"),
		strings.HasSuffix(word, "is"),
		strings.HasSuffix(word, "ous"):
		return false
	}
	return strings.HasSuffix(word, "s") || strings.HasSuffix(word, "men")
}

func candidates(word string) []string {
	var out []string
	for _, d := range detachments {
		if strings.HasSuffix(word, d.suffix) && len(word) > len(d.suffix)+1 {
			out = append(out, strings.TrimSuffix(word, d.suffix)+d.replace)
		}
	}
	return out
}

// ruleLemma applies WordNet's noun detachment rules without a dictionary check.
func ruleLemma(word string) string {
	switch {
	case strings.HasSuffix(word, "men"):
		return strings.TrimSuffix(word, "men") + "man"
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "sses"),
		strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "xes"),
		strings.HasSuffix(word, "zzes"):
		return strings.TrimSuffix(word, "es")
	case strings.HasSuffix(word, "s"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}
