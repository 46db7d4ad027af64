package fabric

import "fmt"

// DeliveryError reports a multicast that stopped part way. The first
// Delivered cores of the mask, in ascending position order, hold a copy.
type DeliveryError struct {
	Delivered int
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("multicast stopped after %d copies: %v", e.Delivered, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
