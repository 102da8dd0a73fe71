package utils

// A Guard runs a cleanup when a constructor bails out early, and skips it once the constructor
// reaches its successful return:
//
//	guard := NewGuard(func() { queue.Close() })
//	defer guard.OnFail()
//	if err != nil { return nil, err }
//	guard.Success()
//	return built, nil
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a guard that calls onFailCleanup from OnFail unless Success was called.
func NewGuard(onFailCleanup func()) *Guard {
	ret := &Guard{}
	ret.OnFail = func() {
		if !ret.success {
			onFailCleanup()
		}
	}
	return ret
}

// Success disarms the cleanup.
func (guard *Guard) Success() {
	guard.success = true
}
