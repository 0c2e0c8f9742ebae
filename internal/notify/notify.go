// Package notify tells the operator that the queue site offered something
// other than "no free time".
package notify

import (
	"context"
)

// Subject is used for every notification.
const Subject = "slotwatch: free slots found"

// Notification is one outbound message.
type Notification struct {
	Subject string
	Body    string
}

// Notifier delivers a notification over one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// Set is the list of configured channels.
type Set []Notifier

// Names lists the channel names in order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for _, n := range s {
		names = append(names, n.Name())
	}
	return names
}
