package chatsync

import "patentchat/internal/models"

// Merge puts prepend in front of existing and drops repeated IDs, keeping the
// first occurrence. It is only used for backward pagination, so an entry in the
// older page wins over the same ID already on screen.
//
// With an empty prepend, existing is returned as is.
func Merge(prepend, existing []models.Message) []models.Message {
	if len(prepend) == 0 {
		return existing
	}

	out := make([]models.Message, 0, len(prepend)+len(existing))
	seen := make(map[string]struct{}, len(prepend)+len(existing))
	for _, list := range [][]models.Message{prepend, existing} {
		for _, m := range list {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
