// README: Delivery targets for rendered notifications.
package notification

import "context"

//go:generate mockgen -source=sink.go -destination=mocks/mock_sink.go -package=mocks

// Sink delivers a notification somewhere outside the process.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}
