package notifier

import (
	"context"
	"fmt"
)

// Notifier delivers alert and error messages to an external channel.
type Notifier interface {
	Notify(ctx context.Context, text string, isError bool) error
}

// DeliveryError reports a failed alert delivery attempt.
type DeliveryError struct {
	Channel string
	Status  int
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("notifier: %s delivery failed with status %d", e.Channel, e.Status)
	}
	return fmt.Sprintf("notifier: %s delivery failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
