package stats

import "sync/atomic"

type atomicFlag struct {
	val int32
}

// set flag to value if existing flag is different, otherwise return
func (b *atomicFlag) TrySet(bVal bool) bool {
	var v int32
	if bVal {
		v = 1
	}
	prev := atomic.SwapInt32(&b.val, v)
	// already set. unsuccessful
	if prev == v {
		return false
	}
	return true
}

func (b *atomicFlag) Get() bool {
	return atomic.LoadInt32(&b.val) == 1
}

// ConfigCapabilities is a Capabilities implementation backed by atomic
// flags so support can be flipped at runtime (e.g. through the HTTP API)
// and is observed by the very next sample.
type ConfigCapabilities struct {
	rtt       atomicFlag
	bandwidth atomicFlag
}

func NewConfigCapabilities(rtt, bandwidth bool) *ConfigCapabilities {
	c := &ConfigCapabilities{}
	c.rtt.TrySet(rtt)
	c.bandwidth.TrySet(bandwidth)
	return c
}

func (c *ConfigCapabilities) SupportsRTT() bool {
	return c.rtt.Get()
}

func (c *ConfigCapabilities) SupportsBandwidth() bool {
	return c.bandwidth.Get()
}

// SetRTT updates RTT support, returning true if the value changed.
func (c *ConfigCapabilities) SetRTT(supported bool) bool {
	return c.rtt.TrySet(supported)
}

// SetBandwidth updates bandwidth support, returning true if the value changed.
func (c *ConfigCapabilities) SetBandwidth(supported bool) bool {
	return c.bandwidth.TrySet(supported)
}
