package notify

import (
	"context"
	"errors"
)

// Fanout sends to every wired channel. All channels are attempted even when an
// earlier one fails; Send reports success only if every channel succeeded, so
// a partial failure leaves the event eligible for redelivery (channels must
// tolerate the resulting duplicates).
type Fanout struct {
	channels []Channel
}

func NewFanout(channels ...Channel) *Fanout {
	return &Fanout{channels: channels}
}

func (f *Fanout) Send(ctx context.Context, userID string, n Notification) error {
	var errs []error
	for _, ch := range f.channels {
		if err := ch.Send(ctx, userID, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
