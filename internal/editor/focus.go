package editor

// Caret says where the text cursor lands when focus moves into an item.
type Caret int

const (
	CaretKeep Caret = iota
	CaretEnd
	CaretStart
)

// Focus identifies the focused item, or the list container.
type Focus struct {
	ItemID    string
	Container bool
	Caret     Caret
}

// ItemFocus focuses one item.
func ItemFocus(id string, caret Caret) Focus {
	return Focus{ItemID: id, Caret: caret}
}

// ContainerFocus focuses the list container.
func ContainerFocus() Focus {
	return Focus{Container: true}
}

// On reports whether the focus sits on one item.
func (f Focus) On(id string) bool {
	return !f.Container && f.ItemID != "" && f.ItemID == id
}

// ResolveFocus computes where focus goes once a structural mutation has been applied.
// pre and post are the outline right before and right after the change; current is the focus the
// user holds at completion time.
func ResolveFocus(pre, post Outline, m Mutation, createdID string, current Focus) Focus {
	switch m.Kind {
	case MutationDelete:
		if !current.On(m.ItemID) && !dangling(post, current) {
			return current
		}
		idx := pre.Index(m.ItemID)
		for i := idx - 1; i >= 0; i-- {
			prev, _ := pre.At(i)
			if post.Has(prev.ID) {
				return ItemFocus(prev.ID, CaretEnd)
			}
		}
		return ContainerFocus()
	case MutationCreateAfter:
		if createdID == "" || !post.Has(createdID) {
			return current
		}
		if current.On(m.ItemID) || current.Container || dangling(post, current) || current.ItemID == "" {
			return ItemFocus(createdID, CaretEnd)
		}
		return current
	default:
		return current
	}
}

// dangling reports whether an item focus points at something no longer in the outline.
func dangling(o Outline, f Focus) bool {
	return !f.Container && f.ItemID != "" && !o.Has(f.ItemID)
}
