package editor

import "context"

// MutationTransport performs the two remote structural operations.
type MutationTransport interface {
	CreateAfter(ctx context.Context, afterItemID string) (Fragment, error)
	Delete(ctx context.Context, itemID string) error
}

// TextSaver persists item text edits.
type TextSaver interface {
	UpdateText(ctx context.Context, itemID, text string) error
}

// CompletionSetter marks items done or open.
type CompletionSetter interface {
	SetCompleted(ctx context.Context, itemID string, done bool) error
}

// ListLoader fetches a list by id or name.
type ListLoader interface {
	LoadList(ctx context.Context, ref string) (Outline, error)
}

// Remote bundles everything the front end needs from the list server.
type Remote interface {
	MutationTransport
	TextSaver
	CompletionSetter
	ListLoader
}

// GestureSource turns raw pointer input into drag gestures.
type GestureSource interface {
	Gesture(input any) (GestureEvent, bool)
}
