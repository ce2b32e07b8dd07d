package domain

import "time"

// Resource identifies a class of entities clients can subscribe to.
// The board currently exposes a single class.
type Resource string

const ResourceMessage Resource = "message"

// ChangeKind tags the three mutations the store can perform. The values
// double as the "action" field of the broadcast envelope.
type ChangeKind string

const (
	Created ChangeKind = "create"
	Updated ChangeKind = "update"
	Deleted ChangeKind = "delete"
)

// ChangeEvent describes one committed mutation. It is transient: built
// by the change notifier after the store transaction commits, consumed
// by the dispatcher, never persisted.
//
// At is a non-decreasing sequence marker: the message's creation time
// for creates, the mutation time otherwise.
type ChangeEvent struct {
	Kind     ChangeKind
	Resource Resource
	Data     Payload
	At       time.Time
}

// Broadcast is the envelope pushed to subscribed connections. It never
// carries a request id; that absence is how clients tell unsolicited
// events apart from direct replies.
type Broadcast struct {
	Action ChangeKind `json:"action"`
	Data   Payload    `json:"data"`
}
