package feed

import (
	"sort"

	"brief-backend/internal/post"
)

// Merge concatenates batches in order, keeps the first copy of each brief and
// sorts newest first. Briefs with equal timestamps keep their relative order.
func Merge(batches ...[]post.Post) []post.Post {
	seen := map[string]struct{}{}
	merged := []post.Post{}
	for _, batch := range batches {
		for _, p := range batch {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}
