package editor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MutationKind names one structural change.
type MutationKind string

const (
	MutationCreateAfter MutationKind = "create_after"
	MutationDelete      MutationKind = "delete"
)

// Origin records which input channel asked for a mutation.
type Origin string

const (
	OriginKey   Origin = "key"
	OriginSwipe Origin = "swipe"
)

// Mutation is one in-flight structural change tied to one item id.
type Mutation struct {
	Seq    uint64
	Kind   MutationKind
	ItemID string
	Origin Origin
}

// Fragment is the server's rendering of a created item.
type Fragment struct {
	Item   Item
	Markup string
}

// Result is the settled outcome of one mutation.
type Result struct {
	Mutation Mutation
	Fragment Fragment
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the mutation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// TimedOut reports whether the request ran past its deadline.
func (r Result) TimedOut() bool {
	return errors.Is(r.Err, context.DeadlineExceeded)
}

// Execute performs one mutation against the transport under an optional timeout.
func Execute(ctx context.Context, transport MutationTransport, m Mutation, timeout time.Duration) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if transport == nil {
		return Result{Mutation: m, Err: ErrNoTransport}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	res := Result{Mutation: m}
	switch m.Kind {
	case MutationCreateAfter:
		fragment, err := transport.CreateAfter(ctx, m.ItemID)
		if err == nil && fragment.Item.ID == "" {
			err = fmt.Errorf("create after %q: %w", m.ItemID, ErrInvalidItemID)
		}
		res.Fragment = fragment
		res.Err = err
	case MutationDelete:
		res.Err = transport.Delete(ctx, m.ItemID)
	default:
		res.Err = fmt.Errorf("unsupported mutation kind %q", m.Kind)
	}
	if res.Err != nil && ctx.Err() != nil && !errors.Is(res.Err, ctx.Err()) {
		res.Err = errors.Join(res.Err, ctx.Err())
	}
	res.Elapsed = time.Since(started)
	return res
}
