package source

// A Monitor is the OS callback registration for one kind of reading.
//
// Start registers deliver and returns a function that unregisters it. deliver may be called
// from any goroutine, but not before Start has returned. stop must not wait for a delivery that
// is still in progress.
type Monitor[R any] interface {
	Start(deliver func(Result[R])) (stop func(), err error)
}

// MonitorFunc adapts a function to a Monitor.
type MonitorFunc[R any] func(deliver func(Result[R])) (func(), error)

// Start calls f.
func (f MonitorFunc[R]) Start(deliver func(Result[R])) (func(), error) {
	return f(deliver)
}

// A PermissionAuthority is the OS permission query for a source.
type PermissionAuthority interface {
	// Status returns the current availability without prompting.
	Status() Availability
	// Request prompts the user. done receives the availability after the prompt, on any
	// goroutine, possibly before Request returns.
	Request(done func(Availability))
}
