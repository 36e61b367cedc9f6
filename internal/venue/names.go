package venue

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/refcal/refcal/internal/textutil"
)

// DefaultThreshold is the minimum word-overlap score for a fuzzy venue match.
const DefaultThreshold = 0.45

// abbreviations maps folded tokens to their expansion. The match listing
// abbreviates school names ("Coll. St-Charles") where the address listing
// spells them out.
var abbreviations = map[string]string{
	"sem":  "seminaire",
	"st":   "saint",
	"ste":  "sainte",
	"coll": "college",
	"cfp":  "centre de formation professionnel",
	"ec":   "ecole",
	"pav":  "pavillon",
}

var specialCases = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\bLe\s+May\b`), "Lemay"},
	{regexp.MustCompile(`(?i)\bL\.\s*-?\s*J\.*\s*Casault\b`), "Louis-Jacques Casault"},
}

var parenthesized = regexp.MustCompile(`\([^)]*\)`)

// normalizeName reduces a venue name to a comparable form: special spellings
// fixed, parenthesized notes dropped, folded, abbreviations expanded.
//
//	"Coll. St-Charles-Garnier (gym B)" -> "college saint charles garnier"
func normalizeName(s string) string {
	for _, sc := range specialCases {
		s = sc.re.ReplaceAllString(s, sc.repl)
	}
	s = parenthesized.ReplaceAllString(s, " ")

	words := strings.Fields(textutil.Fold(s))
	for i, w := range words {
		if full, ok := abbreviations[w]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}

// overlap scores two normalized names by shared words over the larger word set.
func overlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for w := range setA {
		if setB[w] {
			shared++
		}
	}
	total := len(setA)
	if len(setB) > total {
		total = len(setB)
	}
	return float64(shared) / float64(total)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// containsWords reports whether needle appears in haystack on word boundaries.
func containsWords(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

// fuzzyMatch returns the id of the venue whose name best matches ref.
// A name contained in the other (either direction) wins outright; otherwise
// the highest overlap above threshold wins, Jaro-Winkler breaking ties.
func (d *Directory) fuzzyMatch(ref string) (string, bool) {
	nref := normalizeName(ref)
	if nref == "" {
		return "", false
	}

	bestID := ""
	bestScore, bestSim := 0.0, 0.0
	for _, id := range d.order {
		name := normalizeName(d.byID[id].DisplayName())
		if name == "" {
			continue
		}
		if containsWords(name, nref) || containsWords(nref, name) {
			return id, true
		}
		score := overlap(nref, name)
		if score == 0 {
			continue
		}
		sim := matchr.JaroWinkler(nref, name, false)
		if score > bestScore || (score == bestScore && sim > bestSim) {
			bestID, bestScore, bestSim = id, score, sim
		}
	}

	if bestScore > d.threshold {
		return bestID, true
	}
	return "", false
}
