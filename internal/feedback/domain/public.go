package domain

// PublicItems projects a list for the widget: only public items, only
// public comments, and labels re-resolved against known, dropping orphans.
func PublicItems(items []Item, known []Label) []Item {
	index := make(map[string]Label, len(known))
	for _, l := range known {
		index[l.ID] = l
	}

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Status != StatusPublic {
			continue
		}
		p := it.Clone()

		p.Labels = p.Labels[:0]
		for _, l := range it.Labels {
			if resolved, ok := index[l.ID]; ok {
				p.Labels = append(p.Labels, resolved)
			}
		}

		p.Comments = make([]Comment, 0, len(it.Comments))
		for _, c := range it.Comments {
			if c.IsPublic {
				p.Comments = append(p.Comments, c)
			}
		}
		out = append(out, p)
	}
	return out
}
