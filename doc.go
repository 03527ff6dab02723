// Package ordex executes a priority-ordered workset in parallel while
// preserving a serializable commit order.
//
// Each round, a window of least-ordered items is admitted and speculated on
// in two phases: the neighborhood function locks the shared objects an item
// will touch, then the operator applies its effects. When two in-flight
// iterations contend for the same object, the one whose element orders first
// wins; the loser rolls back and retries in a later round. The window size
// adapts between rounds toward a target commit ratio, and operators may push
// new items into the ordered workset as they commit.
//
// A minimal loop:
//
//	var locks [16]ordex.Word
//	stats, err := ordex.ForEach(ctx, items,
//		func(a, b int) bool { return a < b },
//		func(elem int, h *ordex.Handle[int]) error {
//			return h.Acquire(&locks[elem%len(locks)])
//		},
//		func(elem int, h *ordex.Handle[int]) error {
//			apply(elem)
//			return nil
//		},
//	)
package ordex
