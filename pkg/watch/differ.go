package watch

// Changed reports whether current differs meaningfully from previous.
//
// A cardinality mismatch is reported immediately. Otherwise previous is scanned
// and the first identifier missing from current reports a change. Identifiers
// are path strings, so a rename shows up as the old path being absent.
func Changed(previous, current []string) bool {
	if len(previous) != len(current) {
		return true
	}
	if len(previous) == 0 {
		return false
	}

	seen := make(map[string]struct{}, len(current))
	for _, id := range current {
		seen[id] = struct{}{}
	}
	for _, id := range previous {
		if _, ok := seen[id]; !ok {
			return true
		}
	}
	return false
}
