package repo

import "context"

// DedupRepo remembers platform event ids so redelivered events are dropped
type DedupRepo interface {
	// MarkSeen records id and reports whether it was seen before
	MarkSeen(ctx context.Context, id string) (seen bool, err error)
}
