package domain

import "time"

// Draft is an in-progress capture saved so the field agent can resume it.
// Drafts are never synchronised. Only finalised records enter the queue.
type Draft struct {
	Kind    RecordKind
	Payload []byte
	SavedAt time.Time
}
