package property

import (
	"github.com/samber/lo"
)

// A Provider exposes the fixed, ordered list of properties belonging to one logical entity. The
// order is part of each provider's contract and is never sorted.
type Provider interface {
	AllProperties() []AnyProperty
}

// Properties is a Provider over a fixed list.
type Properties []AnyProperty

// NewProperties keeps props in the given order.
func NewProperties(props ...AnyProperty) Properties {
	return append(Properties(nil), props...)
}

// AllProperties returns a copy of the list so callers cannot reorder it.
func (ps Properties) AllProperties() []AnyProperty {
	return append([]AnyProperty(nil), ps...)
}

// Group is a Provider for a nested sub-structure of a source, e.g. one axis set of a motion
// sample. Its ID is the common prefix of its properties' IDs.
type Group struct {
	id          ID
	displayName string
	props       Properties
}

// NewGroup returns a group of props under id.
func NewGroup(id ID, displayName string, props ...AnyProperty) *Group {
	return &Group{id: id, displayName: displayName, props: NewProperties(props...)}
}

// ID returns the group's address.
func (g *Group) ID() ID {
	return g.id
}

// DisplayName returns the group's human readable name.
func (g *Group) DisplayName() string {
	return g.displayName
}

// AllProperties returns the group's properties in construction order.
func (g *Group) AllProperties() []AnyProperty {
	return g.props.AllProperties()
}

// Flatten concatenates providers, preserving the order inside and across them.
func Flatten(providers ...Provider) []AnyProperty {
	return lo.FlatMap(providers, func(p Provider, _ int) []AnyProperty {
		return p.AllProperties()
	})
}

// Find returns the first property with the given display name.
func Find(p Provider, displayName string) (AnyProperty, bool) {
	return lo.Find(p.AllProperties(), func(ap AnyProperty) bool {
		return ap.DisplayName() == displayName
	})
}

// FindByID returns the property addressed by id.
func FindByID(p Provider, id ID) (AnyProperty, bool) {
	return lo.Find(p.AllProperties(), func(ap AnyProperty) bool {
		return ap.ID().Equal(id)
	})
}

// DisplayNames lists the display names of a provider's properties in order.
func DisplayNames(p Provider) []string {
	return lo.Map(p.AllProperties(), func(ap AnyProperty, _ int) string {
		return ap.DisplayName()
	})
}
