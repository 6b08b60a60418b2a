package normalize

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/carbonfactors/internal/domain/activity"
)

// Rule assigns a source type to segments mentioning any of its keywords.
// Keywords match whole words, case-insensitively; multi-word keywords are allowed.
type Rule struct {
	SourceType string   `yaml:"source_type"`
	Keywords   []string `yaml:"keywords"`
}

// DefaultRules returns the built-in keyword table. Order matters: the first
// matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{SourceType: activity.SourceTransport, Keywords: []string{
			"transport", "transported", "transportation", "shipping", "shipped", "shipment",
			"freight", "delivery", "delivered", "haulage", "trucking", "truck", "lorry",
			"courier", "rail", "by sea", "air cargo",
		}},
		{SourceType: activity.SourceDisposal, Keywords: []string{
			"disposal", "disposed", "dispose", "landfill", "landfilled", "incineration",
			"incinerated", "waste", "end of life", "end-of-life", "recycling", "recycled", "composting",
		}},
		{SourceType: activity.SourcePurchasedElectricity, Keywords: []string{
			"electricity", "grid power", "power consumption", "electric power",
		}},
		{SourceType: activity.SourceFugitive, Keywords: []string{
			"refrigerant", "leak", "leakage", "fugitive", "venting", "flaring",
		}},
		{SourceType: activity.SourceMobileCombustion, Keywords: []string{
			"company car", "fleet", "vehicle fuel", "driving", "driven",
		}},
		{SourceType: activity.SourceStationaryCombustion, Keywords: []string{
			"boiler", "furnace", "heating", "generator", "stationary combustion", "burned", "burning",
		}},
	}
}

type classifier struct {
	rules []Rule
}

func newClassifier(rules []Rule) classifier {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		st := activity.CanonicalSourceType(r.SourceType)
		if st == "" || len(r.Keywords) == 0 {
			continue
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		out = append(out, Rule{SourceType: st, Keywords: kws})
	}
	return classifier{rules: out}
}

// classify returns the source type of the first rule with a keyword in text,
// or "" when none matches.
func (c classifier) classify(text string) string {
	lower := strings.ToLower(text)
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			if containsWord(lower, k) {
				return r.SourceType
			}
		}
	}
	return ""
}

// containsWord reports whether word occurs in s bounded by non-letters.
func containsWord(s, word string) bool {
	for from := 0; from <= len(s)-len(word); {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if boundary(s, start-1) && boundary(s, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
