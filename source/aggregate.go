package source

import (
	"go.viam.com/sensorkit/notify"
	"go.viam.com/sensorkit/property"
)

// A PropertiesUpdate names the property that changed and the snapshot it changed to.
type PropertiesUpdate struct {
	Property property.AnyProperty
	Snapshot property.AnySnapshot
}

// An Aggregator republishes the updates of every property of a provider as one stream.
// Updates are forwarded on the goroutine that delivered them, so the stream keeps the delivery
// context of the properties.
type Aggregator struct {
	subject *notify.Subject[PropertiesUpdate]
	tokens  notify.Bag
}

// Aggregate subscribes to all of provider's properties.
func Aggregate(provider property.Provider) *Aggregator {
	agg := &Aggregator{subject: notify.NewSubject[PropertiesUpdate](nil)}
	for _, ap := range provider.AllProperties() {
		agg.tokens.Add(ap.Subscribe(func(snapshot property.AnySnapshot) {
			//nolint:errcheck
			agg.subject.Notify(PropertiesUpdate{Property: ap, Snapshot: snapshot})
		}))
	}
	return agg
}

// Subscribe registers listener for updates of any property.
func (agg *Aggregator) Subscribe(listener func(PropertiesUpdate)) *notify.Token {
	return agg.subject.Subscribe(listener)
}

// Close unsubscribes from the properties.
func (agg *Aggregator) Close() {
	agg.tokens.Clear()
}
