// Package normalize turns a raw activity description and its declared
// quantity into an activity.Activity split into independently calculated
// components (production, transport, disposal...).
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/activity"
	"github.com/kailas-cloud/carbonfactors/internal/domain/unit"
)

var (
	tonne    = unit.MustParse("t")
	km       = unit.MustParse("km")
	tonneKm  = unit.MustParse("tkm")
	freight  = unit.Mass.Add(unit.Length)
	distance = unit.Length
)

// Input is a raw activity as extracted from a document or sent by a client.
type Input struct {
	Description  string
	QuantityText string
	// Quantity and Unit, when set, override anything parsed from text.
	Quantity     *float64
	Unit         string
	CategoryHint string
	// SourceType overrides the classified source type of the primary component.
	SourceType string
}

// Normalizer converts raw activities. It is stateless and safe for concurrent use.
type Normalizer struct {
	cls classifier
}

// New creates a normalizer with the given keyword rules; nil selects DefaultRules.
func New(rules []Rule) *Normalizer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Normalizer{cls: newClassifier(rules)}
}

type segment struct {
	span
	text       string
	sourceType string
	qty        activity.Quantity
	hasQty     bool
	rest       string
}

// Normalize validates in and builds an Activity.
//
// The quantity comes from the explicit Quantity/Unit, else QuantityText, else
// the primary clause of the description. When none yields a number with a
// known unit, the activity is still returned with quantity 1 "unspecified"
// together with a *domain.UnparsableQuantityError. Any other error means the
// input is invalid and no activity is returned.
func (n *Normalizer) Normalize(in Input) (*activity.Activity, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, fmt.Errorf("%w: description is required", domain.ErrInvalidActivity)
	}

	segs := n.segments(desc)
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: description %q has no content", domain.ErrInvalidActivity, desc)
	}
	primary := pickPrimary(segs)

	var notes []string
	qty, parseErr := activityQuantity(in, segs[primary])
	if parseErr != nil && !errors.Is(parseErr, domain.ErrUnparsableQuantity) {
		return nil, parseErr
	}
	if in.Quantity != nil && segs[primary].hasQty && !sameQuantity(qty, segs[primary].qty) {
		notes = append(notes, fmt.Sprintf("Declared quantity %s used instead of %s stated in the description.",
			qty, segs[primary].qty))
	}

	p := segs[primary]
	sourceType := p.sourceType
	if st := strings.TrimSpace(in.SourceType); st != "" {
		sourceType = st
	}
	primaryName := nameOf(p, sourceType)
	comps := make([]activity.Component, 0, len(segs))
	c, err := activity.NewComponent(primaryName, sourceType, p.rest, in.CategoryHint, qty)
	if err != nil {
		return nil, err
	}
	comps = append(comps, c)

	for i, s := range segs {
		if i == primary {
			continue
		}
		forms, note := secondaryForms(s, qty)
		if note != "" {
			notes = append(notes, note)
		}
		if len(forms) == 0 {
			continue
		}
		name := nameOf(s, s.sourceType)
		c, err := activity.NewComponent(name, s.sourceType, secondaryQuery(s, primaryName), "", forms...)
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}

	act, err := activity.New(desc, qty, in.CategoryHint, comps, notes)
	if err != nil {
		return nil, err
	}
	return act, parseErr
}

// segments splits desc into classified clauses. A clause with neither a
// quantity nor a keyword is a continuation of the previous one ("plastic and
// paper bags") and is merged into it.
func (n *Normalizer) segments(desc string) []segment {
	var out []segment
	for _, sp := range splitSpans(desc) {
		s := n.newSegment(desc, sp)
		if len(out) > 0 && s.sourceType == "" && !s.hasQty {
			prev := out[len(out)-1]
			merged := n.newSegment(desc, span{prev.start, sp.end})
			if prev.sourceType != "" {
				merged.sourceType = prev.sourceType
			}
			out[len(out)-1] = merged
			continue
		}
		out = append(out, s)
	}
	for i := range out {
		if out[i].sourceType == "" {
			out[i].sourceType = activity.SourceProduction
		}
	}
	return out
}

func (n *Normalizer) newSegment(desc string, sp span) segment {
	text := cleanSegment(desc[sp.start:sp.end])
	s := segment{span: sp, text: text, sourceType: n.cls.classify(text)}
	s.qty, s.rest, s.hasQty = activity.SplitQuantity(text)
	s.rest = cleanSegment(s.rest)
	if s.sourceType == "" && s.hasQty {
		// A bare distance or freight amount ("20 km") is transport.
		if d := s.qty.Unit().Dimension(); d == distance || d == freight {
			s.sourceType = activity.SourceTransport
		}
	}
	return s
}

// pickPrimary returns the first production clause, else the first clause.
func pickPrimary(segs []segment) int {
	for i, s := range segs {
		if s.sourceType == activity.SourceProduction {
			return i
		}
	}
	return 0
}

func activityQuantity(in Input, primary segment) (activity.Quantity, error) {
	unitText := strings.TrimSpace(in.Unit)
	switch {
	case in.Quantity != nil:
		if unitText == "" {
			return activity.Quantity{}, fmt.Errorf("%w: unit is required with quantity", domain.ErrInvalidActivity)
		}
		u, err := unit.Parse(unitText)
		if err != nil {
			return activity.Quantity{}, fmt.Errorf("%w: %w", domain.ErrInvalidActivity, err)
		}
		return activity.NewQuantity(*in.Quantity, u)
	case unitText != "":
		return activity.Quantity{}, fmt.Errorf("%w: quantity is required with unit %q", domain.ErrInvalidActivity, unitText)
	}

	if qt := strings.TrimSpace(in.QuantityText); qt != "" {
		if q, err := activity.ParseQuantity(qt); err == nil {
			return q, nil
		}
	}
	if primary.hasQty {
		return primary.qty, nil
	}

	input := strings.TrimSpace(in.QuantityText)
	if input == "" {
		input = strings.TrimSpace(in.Description)
	}
	return activity.Unspecified(), &domain.UnparsableQuantityError{Input: input}
}

// secondaryForms returns the quantity forms of a non-primary clause and an
// optional note explaining an assumption or omission.
func secondaryForms(s segment, actQty activity.Quantity) ([]activity.Quantity, string) {
	if s.sourceType == activity.SourceTransport {
		if !s.hasQty {
			return nil, fmt.Sprintf("Transport %q states no distance; it was not calculated.", s.text)
		}
		if s.qty.Unit().Dimension() == distance && !actQty.IsUnspecified() && actQty.Unit().Dimension() == unit.Mass {
			if tkm, ok := freightWork(actQty, s.qty); ok {
				return []activity.Quantity{tkm, s.qty}, ""
			}
		}
		return []activity.Quantity{s.qty}, ""
	}
	if s.hasQty {
		return []activity.Quantity{s.qty}, ""
	}
	return []activity.Quantity{actQty}, fmt.Sprintf("Quantity for %q not stated; assumed the activity quantity of %s.",
		s.text, actQty)
}

// freightWork multiplies a carried mass by a distance into tonne-kilometres.
func freightWork(mass, dist activity.Quantity) (activity.Quantity, bool) {
	t, err := mass.To(tonne)
	if err != nil {
		return activity.Quantity{}, false
	}
	d, err := dist.To(km)
	if err != nil {
		return activity.Quantity{}, false
	}
	q, err := activity.NewQuantity(t.Value()*d.Value(), tonneKm)
	if err != nil {
		return activity.Quantity{}, false
	}
	return q, true
}

func nameOf(s segment, sourceType string) string {
	if s.rest != "" {
		return s.rest
	}
	return sourceType
}

// secondaryQuery anchors short clauses ("transport", "landfill") to the
// primary product so the search has something to match on.
func secondaryQuery(s segment, primaryName string) string {
	base := s.rest
	if base == "" {
		base = s.sourceType
	}
	if len(strings.Fields(base)) <= 2 && primaryName != "" && primaryName != base {
		return base + " of " + primaryName
	}
	return base
}

func sameQuantity(a, b activity.Quantity) bool {
	if a.IsUnspecified() || b.IsUnspecified() || !a.Unit().Compatible(b.Unit()) {
		return false
	}
	bv, err := b.To(a.Unit())
	if err != nil {
		return false
	}
	diff := a.Value() - bv.Value()
	return diff < 1e-9 && diff > -1e-9
}
