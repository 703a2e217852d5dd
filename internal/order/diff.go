package order

// Changes describes what differs between two snapshots of the same order
// scope. One primitive serves both consumers: cache eviction (via
// Cacheable filtering on the next set) and the kanban "what's new"
// highlight (Added / AddedItems).
type Changes struct {
	Added   []string // order ids present in next but not prev
	Updated []string // order ids whose timestamp moved forward
	Removed []string // order ids present in prev but not next

	// AddedItems maps an order id to ids of items that appeared (or came
	// back with status "added") since the previous snapshot.
	AddedItems map[string][]string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Diff compares two snapshots keyed by order id.
func Diff(prev, next []Order) Changes {
	ch := Changes{AddedItems: make(map[string][]string)}

	prevByID := make(map[string]Order, len(prev))
	for _, o := range prev {
		prevByID[o.ID] = o
	}
	nextIDs := make(map[string]bool, len(next))

	for _, o := range next {
		nextIDs[o.ID] = true
		old, seen := prevByID[o.ID]
		if !seen {
			ch.Added = append(ch.Added, o.ID)
			for _, it := range o.Items {
				ch.AddedItems[o.ID] = append(ch.AddedItems[o.ID], it.ID)
			}
			continue
		}
		if o.Timestamp().After(old.Timestamp()) {
			ch.Updated = append(ch.Updated, o.ID)
		}
		if items := newItems(old, o); len(items) > 0 {
			ch.AddedItems[o.ID] = items
		}
	}

	for _, o := range prev {
		if !nextIDs[o.ID] {
			ch.Removed = append(ch.Removed, o.ID)
		}
	}
	return ch
}

func newItems(old, cur Order) []string {
	oldIDs := make(map[string]bool, len(old.Items))
	for _, it := range old.Items {
		oldIDs[it.ID] = true
	}
	var added []string
	for _, it := range cur.Items {
		if !oldIDs[it.ID] {
			added = append(added, it.ID)
		}
	}
	return added
}

// FilterCacheable returns only the orders that belong in the persisted
// snapshot.
func FilterCacheable(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.Cacheable() {
			out = append(out, o)
		}
	}
	return out
}
