// Package natsnotify publishes vireo engine events to NATS, for hosts that
// fan authentication and service-health conditions out beyond the process.
package natsnotify

import (
	"encoding/json"

	"github.com/nats-io/nats.go"

	vireo "github.com/vireolabs/vireo-go"
)

const defaultSubjectPrefix = "vireo.events"

// message is the wire form of a published event.
type message struct {
	Kind  string `json:"kind"`
	Token string `json:"token,omitempty"`
}

// Notifier publishes engine events to NATS subjects of the form
// "<prefix>.<kind>". Posting is fire-and-forget, matching the engine's
// notifier contract: publish errors are dropped.
//
// The connection is owned by the host; closing it is the host's job.
//
//	nc, _ := nats.Connect(nats.DefaultURL)
//	config := vireo.DefaultConfig().
//	    WithNotifier(natsnotify.New(nc, ""))
type Notifier struct {
	conn          *nats.Conn
	subjectPrefix string
}

// New creates a notifier publishing on the given connection. An empty
// subjectPrefix uses "vireo.events".
func New(conn *nats.Conn, subjectPrefix string) *Notifier {
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}
	return &Notifier{conn: conn, subjectPrefix: subjectPrefix}
}

// Post publishes the event.
func (n *Notifier) Post(ev vireo.Event) {
	payload, err := json.Marshal(message{Kind: ev.Kind.String(), Token: ev.Token})
	if err != nil {
		return
	}
	_ = n.conn.Publish(n.subjectPrefix+"."+ev.Kind.String(), payload)
}
