package module

// ComputeAccessibility reports, for each item ID, whether the learner may open it.
// The first item is always accessible; any other item is accessible iff the one before it is completed.
// items must already be sorted by ContentOrder.
func ComputeAccessibility(items []ContentItem, completed map[string]bool) map[string]bool {
	acc := make(map[string]bool, len(items))
	for i, item := range items {
		acc[item.ID] = i == 0 || completed[items[i-1].ID]
	}
	return acc
}

// CompletedSet returns the IDs of the content items completed in progress.
func CompletedSet(progress []Progress) map[string]bool {
	set := make(map[string]bool, len(progress))
	for _, p := range progress {
		if p.Completed {
			set[p.ContentID] = true
		}
	}
	return set
}
