// Package activity holds the canonical form of an extracted activity: its
// declared quantity and the independent components (production, transport,
// disposal...) that are matched to emission factors one by one.
package activity

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
)

// Source types known to the default scope mapping.
const (
	SourceProduction           = "production"
	SourceTransport            = "transport"
	SourceDisposal             = "disposal"
	SourcePurchasedElectricity = "purchased electricity"
	SourceStationaryCombustion = "stationary combustion"
	SourceMobileCombustion     = "mobile combustion"
	SourceFugitive             = "fugitive"
)

// SourceTypes returns the built-in source types.
func SourceTypes() []string {
	return []string{
		SourceProduction,
		SourceTransport,
		SourceDisposal,
		SourcePurchasedElectricity,
		SourceStationaryCombustion,
		SourceMobileCombustion,
		SourceFugitive,
	}
}

var sourceSeparators = strings.NewReplacer("_", " ", "-", " ")

// CanonicalSourceType lowercases a source type and folds "_" and "-" into
// single spaces, so "Purchased_Electricity" and "purchased electricity" agree.
func CanonicalSourceType(s string) string {
	return strings.Join(strings.Fields(sourceSeparators.Replace(strings.ToLower(s))), " ")
}

// Component is one independently calculated part of an activity.
type Component struct {
	name         string
	sourceType   string
	query        string
	categoryHint string
	forms        []Quantity
}

// NewComponent creates a component. forms lists acceptable quantity
// expressions in preference order; at least one is required.
func NewComponent(name, sourceType, query, categoryHint string, forms ...Quantity) (Component, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Component{}, fmt.Errorf("%w: component name is required", domain.ErrInvalidActivity)
	}
	sourceType = CanonicalSourceType(sourceType)
	if sourceType == "" {
		sourceType = SourceProduction
	}
	if strings.TrimSpace(query) == "" {
		query = name
	}
	if len(forms) == 0 {
		return Component{}, fmt.Errorf("%w: component %q has no quantity", domain.ErrInvalidActivity, name)
	}
	if len(forms) > 1 {
		for _, f := range forms {
			if f.IsUnspecified() {
				return Component{}, fmt.Errorf("%w: component %q mixes unspecified and concrete quantities",
					domain.ErrInvalidActivity, name)
			}
		}
	}
	return Component{
		name:         name,
		sourceType:   sourceType,
		query:        strings.TrimSpace(query),
		categoryHint: strings.TrimSpace(categoryHint),
		forms:        append([]Quantity(nil), forms...),
	}, nil
}

// Name returns the process name used in reports.
func (c Component) Name() string { return c.name }

// SourceType returns the emission source type ("production", "transport").
func (c Component) SourceType() string { return c.sourceType }

// Query returns the text searched against the factor catalog.
func (c Component) Query() string { return c.query }

// CategoryHint returns the optional category filter.
func (c Component) CategoryHint() string { return c.categoryHint }

// Forms returns the quantity expressions in preference order.
func (c Component) Forms() []Quantity { return append([]Quantity(nil), c.forms...) }

// Quantity returns the preferred quantity.
func (c Component) Quantity() Quantity { return c.forms[0] }

// Activity is a validated, normalized activity.
type Activity struct {
	description  string
	quantity     Quantity
	categoryHint string
	components   []Component
	notes        []string
}

// New creates an activity. The first component is the primary one and
// carries the activity quantity.
func New(description string, quantity Quantity, categoryHint string, components []Component, notes []string) (*Activity, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", domain.ErrInvalidActivity)
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: activity has no components", domain.ErrInvalidActivity)
	}
	return &Activity{
		description:  description,
		quantity:     quantity,
		categoryHint: strings.TrimSpace(categoryHint),
		components:   append([]Component(nil), components...),
		notes:        append([]string(nil), notes...),
	}, nil
}

// Description returns the original activity text.
func (a *Activity) Description() string { return a.description }

// Quantity returns the declared or parsed activity quantity.
func (a *Activity) Quantity() Quantity { return a.quantity }

// CategoryHint returns the optional category filter.
func (a *Activity) CategoryHint() string { return a.categoryHint }

// Components returns the components in calculation order.
func (a *Activity) Components() []Component { return append([]Component(nil), a.components...) }

// Primary returns the component carrying the activity quantity.
func (a *Activity) Primary() Component { return a.components[0] }

// Notes returns assumptions made while normalizing.
func (a *Activity) Notes() []string { return append([]string(nil), a.notes...) }

// HasSource reports whether any component has the given source type.
func (a *Activity) HasSource(sourceType string) bool {
	for _, c := range a.components {
		if c.sourceType == sourceType {
			return true
		}
	}
	return false
}
