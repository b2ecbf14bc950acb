package core

import "strings"

// DBOrdering sorts a query on one column. Field must be checked with CleanOrdering before reaching SQL.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}

// ParseOrdering reads a comma separated list of fields, each descending when prefixed with "-":
// "-created_at,title" sorts by newest first, then by title.
func ParseOrdering(s string) []DBOrdering {
	var orderings []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		orderings = append(orderings, DBOrdering{Field: field, Ascending: !desc})
	}
	return orderings
}

// CleanOrdering drops every ordering whose field is not in `allowed`.
func CleanOrdering(orderings []DBOrdering, allowed ...string) []DBOrdering {
	if len(orderings) == 0 {
		return nil
	}
	ok := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		ok[f] = struct{}{}
	}
	cleaned := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		if _, found := ok[ord.Field]; found {
			cleaned = append(cleaned, ord)
		}
	}
	return cleaned
}
