package domain

import "time"

// SeedItems is the list shown when the global namespace has no usable data.
// Timestamps are relative to now.
func SeedItems(now time.Time) []Item {
	fix, _ := LabelByID("1")
	announcement, _ := LabelByID("2")
	created := now.Add(-12 * time.Hour)

	return []Item{{
		ID:        "1",
		Title:     "gcjgv",
		Summary:   "hkvkhv",
		Status:    StatusPublic,
		Labels:    []Label{fix, announcement},
		CreatedAt: created,
		UpdatedAt: created,
		Author:    "Akshaya",
		Upvotes: []Upvote{{
			ID:        "1",
			UserID:    "1",
			UserName:  "John Doe",
			CreatedAt: now.Add(-10 * time.Hour),
		}},
		Comments: []Comment{{
			ID:        "1",
			Content:   "This is a great idea! We should implement this soon.",
			Author:    "Admin",
			IsPublic:  true,
			CreatedAt: now.Add(-8 * time.Hour),
		}},
	}}
}
