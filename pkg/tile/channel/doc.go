// Package channel implements channel binding and credit flow control.
//
// Each core owns one Table of 16 endpoints. Binding an endpoint to a
// credited unicast address starts a two-phase handshake: the endpoint holds
// no credits until the destination grants the connection and returns the
// full credit count. Poll completes the handshake without blocking and
// retries a refused acquisition; Wait blocks until it completes. Multicast
// and memory addresses carry no credits and are usable immediately.
//
// A Table must only be used from the goroutine of the core that owns it.
package channel
