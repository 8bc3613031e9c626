package notifications

// Notifier delivers out-of-band alerts about trading activity. Delivery is
// best effort; callers log failures but never block trading on them.
type Notifier interface {
	SendAlert(level, message string) error
}

// NopNotifier discards every alert. Used when no webhook is configured.
type NopNotifier struct{}

func (NopNotifier) SendAlert(level, message string) error { return nil }
