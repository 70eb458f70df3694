package services

import (
	"context"
	"io"
	"time"

	"github.com/Pokatocz/quest-and-check/internal/realtime"
)

// ChangePublisher receives a notification after every successful write.
type ChangePublisher interface {
	Publish(change realtime.Change)
}

// ObjectStore holds evidence and chat photos.
type ObjectStore interface {
	Put(ctx context.Context, bucket, objectPath string, body io.Reader) (string, error)
	PublicURL(bucket, objectPath string) string
	SignedURL(bucket, objectPath string, ttl time.Duration) (string, error)
}

// Photo is an uploaded image awaiting storage.
type Photo struct {
	Filename string
	Body     io.Reader
}

type discardChanges struct{}

func (discardChanges) Publish(realtime.Change) {}

func publisherOrDiscard(p ChangePublisher) ChangePublisher {
	if p == nil {
		return discardChanges{}
	}
	return p
}

func notify(p ChangePublisher, table string, event realtime.Event, teamID, rowID uint) {
	p.Publish(realtime.Change{
		Table:  table,
		Event:  event,
		TeamID: teamID,
		RowID:  rowID,
		At:     time.Now(),
	})
}
