package pricing

import "strconv"

// Number assigns dotted labels ("1", "1.1", "1.2", "2") to every block, following
// each parent's sort order. Labels are for display only and change whenever blocks
// are reordered; never use them as identifiers.
func (t *Tree) Number() map[string]string {
	labels := make(map[string]string, len(t.blocks))
	counters := make(map[string]int)

	var walk func(parent, prefix string)
	walk = func(parent, prefix string) {
		for _, id := range t.children[parent] {
			counters[parent]++
			label := strconv.Itoa(counters[parent])
			if prefix != "" {
				label = prefix + "." + label
			}
			labels[id] = label
			walk(id, label)
		}
	}
	walk("", "")

	return labels
}
