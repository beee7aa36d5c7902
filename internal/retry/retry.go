// Package retry runs an operation a bounded number of times with a linear
// delay between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a linear retry policy: attempt n failing waits Base*n
type Policy struct {
	Attempts int
	Base     time.Duration
}

// Default is the policy used for chat completion calls
var Default = Policy{Attempts: 3, Base: 800 * time.Millisecond}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, the attempts are used up, op returns a
// Permanent error, or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return p.DoNotify(ctx, op, nil)
}

// DoNotify is Do with a hook called after each failed attempt that will be retried
func (p Policy) DoNotify(ctx context.Context, op func(ctx context.Context) error, notify func(err error, wait time.Duration)) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(&linear{base: p.Base}, uint64(attempts-1)), ctx)
	return backoff.RetryNotify(func() error {
		return op(ctx)
	}, b, notify)
}

// linear yields base, 2*base, 3*base, ...
type linear struct {
	base time.Duration
	n    int
}

func (l *linear) NextBackOff() time.Duration {
	l.n++
	return l.base * time.Duration(l.n)
}

func (l *linear) Reset() { l.n = 0 }
