package docweaver

// Dependencies is an ordered, duplicate-free set of external resource
// locators (stylesheets, scripts). Order is first-seen order.
//
// The zero value is an empty set. Methods never modify the receiver.
type Dependencies []string

// NewDependencies builds a set from items, dropping empty strings and
// repeats.
func NewDependencies(items ...string) Dependencies {
	return Dependencies(nil).Add(items...)
}

// Add returns a new set holding d followed by every item not already present.
func (d Dependencies) Add(items ...string) Dependencies {
	out := make(Dependencies, 0, len(d)+len(items))
	seen := make(map[string]struct{}, len(d)+len(items))
	for _, group := range [][]string{d, items} {
		for _, it := range group {
			if it == "" {
				continue
			}
			if _, ok := seen[it]; ok {
				continue
			}
			seen[it] = struct{}{}
			out = append(out, it)
		}
	}
	return out
}

// Merge returns the union of d and others, scanning d first and then each
// of others in order. Merge(A, A) == A.
func (d Dependencies) Merge(others ...Dependencies) Dependencies {
	out := d.Add()
	for _, o := range others {
		out = out.Add(o...)
	}
	return out
}

// Contains reports whether item is in the set.
func (d Dependencies) Contains(item string) bool {
	for _, it := range d {
		if it == item {
			return true
		}
	}
	return false
}

// Len returns the number of resources.
func (d Dependencies) Len() int { return len(d) }
