package broker

import (
	"maps"
	"time"

	"github.com/notifykit/notifyd/pkg/notifications"
)

// DropReason explains why an enqueue did not result in a posted
// notification.
type DropReason string

const (
	DropMissingChannel DropReason = "missing_channel"
	DropBlocked        DropReason = "blocked"
	DropSuspended      DropReason = "suspended"
	DropSnoozed        DropReason = "snoozed"
	DropOverQuota      DropReason = "over_quota"
	DropRateLimited    DropReason = "rate_limited"
	DropImportanceNone DropReason = "importance_none"
	DropCanceled       DropReason = "canceled"
)

// Diagnostics is a point-in-time view of the broker counters.
type Diagnostics struct {
	Enqueued            uint64                `json:"enqueued"`
	Posted              uint64                `json:"posted"`
	Updated             uint64                `json:"updated"`
	Canceled            uint64                `json:"canceled"`
	Snoozed             uint64                `json:"snoozed"`
	Reposted            uint64                `json:"reposted"`
	CallerErrors        uint64                `json:"caller_errors"`
	InvariantViolations uint64                `json:"invariant_violations"`
	RankingUpdates      uint64                `json:"ranking_updates"`
	Dropped             map[DropReason]uint64 `json:"dropped"`
	PackageDrops        map[string]uint64     `json:"package_drops"`

	Delivered        uint64 `json:"delivered"`
	DeliveryFailures uint64 `json:"delivery_failures"`

	PostedCount   int                         `json:"posted_count"`
	EnqueuedCount int                         `json:"enqueued_count"`
	SnoozedCount  int                         `json:"snoozed_count"`
	Summaries     int                         `json:"summaries"`
	Hints         notifications.ListenerHints `json:"hints"`

	SoundOwner     string `json:"sound_owner,omitempty"`
	VibrationOwner string `json:"vibration_owner,omitempty"`
	LightOwner     string `json:"light_owner,omitempty"`
}

// TotalDropped sums drops over every reason.
func (d Diagnostics) TotalDropped() uint64 {
	var n uint64
	for _, v := range d.Dropped {
		n += v
	}
	return n
}

type counters struct {
	enqueued            uint64
	posted              uint64
	updated             uint64
	canceled            uint64
	snoozed             uint64
	reposted            uint64
	callerErrors        uint64
	invariantViolations uint64
	rankingUpdates      uint64
	dropped             map[DropReason]uint64
	packageDrops        map[string]uint64
}

func newCounters() counters {
	return counters{
		dropped:      make(map[DropReason]uint64),
		packageDrops: make(map[string]uint64),
	}
}

func (c *counters) drop(pkg string, reason DropReason) {
	c.dropped[reason]++
	c.packageDrops[pkg]++
}

func (c *counters) fill(d *Diagnostics) {
	d.Enqueued = c.enqueued
	d.Posted = c.posted
	d.Updated = c.updated
	d.Canceled = c.canceled
	d.Snoozed = c.snoozed
	d.Reposted = c.reposted
	d.CallerErrors = c.callerErrors
	d.InvariantViolations = c.invariantViolations
	d.RankingUpdates = c.rankingUpdates
	d.Dropped = maps.Clone(c.dropped)
	d.PackageDrops = maps.Clone(c.packageDrops)
}

// Removal is an archived notification that left the posted list.
type Removal struct {
	Notification notifications.View         `json:"notification"`
	Reason       notifications.CancelReason `json:"reason"`
	RemovedAt    time.Time                  `json:"removed_at"`
}
