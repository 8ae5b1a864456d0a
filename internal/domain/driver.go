package domain

// Driver represents a driver eligible to receive trip notifications.
// The candidate set comes from configuration, not from the store.
type Driver struct {
	ChatID int64
	Name   string
	Car    string
}
