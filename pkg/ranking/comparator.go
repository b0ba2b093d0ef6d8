package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/notifykit/notifyd/pkg/notifications"
)

// Compare is the preliminary order: assistant score, importance,
// non-intercepted first, then newest first.
func Compare(a, b *notifications.Record) int {
	if c := cmp.Compare(b.RankingScore(), a.RankingScore()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Importance(), a.Importance()); c != 0 {
		return c
	}
	if a.IsIntercepted() != b.IsIntercepted() {
		if a.IsIntercepted() {
			return 1
		}
		return -1
	}
	return b.RankingTime().Compare(a.RankingTime())
}

// Sort orders records in place. Groups are placed at the position of their
// best member, with the summary first and the rest by app sort key and
// preliminary rank. Both passes are stable.
func Sort(records []*notifications.Record) {
	slices.SortStableFunc(records, Compare)

	prelim := make(map[*notifications.Record]int, len(records))
	proxy := make(map[string]int)
	for i, r := range records {
		prelim[r] = i
		if _, ok := proxy[r.GroupKey()]; !ok {
			proxy[r.GroupKey()] = i
		}
	}

	slices.SortStableFunc(records, func(a, b *notifications.Record) int {
		if c := cmp.Compare(proxy[a.GroupKey()], proxy[b.GroupKey()]); c != 0 {
			return c
		}
		if a.IsGroupSummary() != b.IsGroupSummary() {
			if a.IsGroupSummary() {
				return -1
			}
			return 1
		}
		if c := compareSortKeys(a.Payload().SortKey, b.Payload().SortKey); c != 0 {
			return c
		}
		return cmp.Compare(prelim[a], prelim[b])
	})
}

func compareSortKeys(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	return strings.Compare(a, b)
}
