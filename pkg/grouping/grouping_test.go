package grouping_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/notifykit/notifyd/pkg/grouping"
)

type recorder struct {
	calls []string
}

func (r *recorder) AddAutogroup(key string)    { r.calls = append(r.calls, "add "+key) }
func (r *recorder) RemoveAutogroup(key string) { r.calls = append(r.calls, "remove "+key) }
func (r *recorder) AddAutogroupSummary(userID int, pkg, trigger string) {
	r.calls = append(r.calls, fmt.Sprintf("summary %d %s %s", userID, pkg, trigger))
}
func (r *recorder) RemoveAutogroupSummary(userID int, pkg string) {
	r.calls = append(r.calls, fmt.Sprintf("unsummary %d %s", userID, pkg))
}

func (r *recorder) take() []string {
	c := r.calls
	r.calls = nil
	return c
}

func member(id int) grouping.Member {
	return grouping.Member{Key: fmt.Sprintf("0|app1|%d|", id), Package: "app1"}
}

func TestEngine_ThresholdAndRetract(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	e := grouping.New(rec)

	for i := 1; i <= 4; i++ {
		e.OnPosted(member(i))
	}
	assert.Empty(t, rec.take(), "threshold not exceeded at four")
	assert.Equal(t, grouping.StateIdle, e.State(0, "app1"))

	e.OnPosted(member(5))
	assert.Equal(t, []string{
		"add 0|app1|1|", "add 0|app1|2|", "add 0|app1|3|", "add 0|app1|4|", "add 0|app1|5|",
		"summary 0 app1 0|app1|5|",
	}, rec.take())
	assert.True(t, e.Active(0, "app1"))
	assert.Equal(t, grouping.StateThresholdExceeded, e.State(0, "app1"))

	e.OnSummaryPosted(0, "app1")
	assert.Equal(t, grouping.StateSummaryPosted, e.State(0, "app1"))

	e.OnPosted(member(5))
	assert.Equal(t, []string{"add 0|app1|5|"}, rec.take(), "updates stay bundled")

	e.OnRemoved(member(5))
	assert.Empty(t, rec.take())
	e.OnRemoved(member(4))
	assert.Equal(t, []string{
		"remove 0|app1|1|", "remove 0|app1|2|", "remove 0|app1|3|",
		"unsummary 0 app1",
	}, rec.take())
	assert.Equal(t, grouping.StateIdle, e.State(0, "app1"))
	assert.Len(t, e.Tracked(0, "app1"), 3)
}

func TestEngine_AppGroupingRetracts(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	e := grouping.New(rec, grouping.WithThreshold(2))
	for i := 1; i <= 3; i++ {
		e.OnPosted(member(i))
	}
	rec.take()
	e.OnSummaryPosted(0, "app1")

	m := member(1)
	m.AppGrouped = true
	e.OnPosted(m)
	assert.Equal(t, []string{"remove 0|app1|1|"}, rec.take(), "still at threshold")

	m = member(2)
	m.AppGrouped = true
	e.OnPosted(m)
	assert.Equal(t, []string{"remove 0|app1|2|", "remove 0|app1|3|", "unsummary 0 app1"}, rec.take())
	assert.False(t, e.Active(0, "app1"))
}

func TestEngine_SummaryRemovedRequestsNewSummary(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	e := grouping.New(rec, grouping.WithThreshold(1))
	e.OnPosted(member(1))
	e.OnPosted(member(2))
	rec.take()
	e.OnSummaryPosted(0, "app1")
	e.OnSummaryRemoved(0, "app1")
	assert.Equal(t, grouping.StateThresholdExceeded, e.State(0, "app1"))

	e.OnPosted(member(3))
	assert.Equal(t, []string{"add 0|app1|3|", "summary 0 app1 0|app1|3|"}, rec.take())
}

func TestEngine_PackagesAndUsersAreIndependent(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	e := grouping.New(rec, grouping.WithThreshold(1))
	e.OnPosted(grouping.Member{Key: "a", Package: "app1"})
	e.OnPosted(grouping.Member{Key: "b", Package: "app2"})
	e.OnPosted(grouping.Member{Key: "c", Package: "app1", UserID: 10})
	assert.Empty(t, rec.take())

	e.Forget(0, "app1")
	assert.Nil(t, e.Tracked(0, "app1"))
	e.ForgetUser(10)
	assert.Nil(t, e.Tracked(10, "app1"))
	assert.Equal(t, []string{"b"}, e.Tracked(0, "app2"))

	e.OnRemoved(grouping.Member{Key: "b", Package: "app2"})
	assert.Nil(t, e.Tracked(0, "app2"), "empty idle bundles are dropped")
}

type mockCallback struct{ mock.Mock }

func (m *mockCallback) AddAutogroup(key string)    { m.Called(key) }
func (m *mockCallback) RemoveAutogroup(key string) { m.Called(key) }
func (m *mockCallback) AddAutogroupSummary(userID int, pkg, trigger string) {
	m.Called(userID, pkg, trigger)
}
func (m *mockCallback) RemoveAutogroupSummary(userID int, pkg string) { m.Called(userID, pkg) }

func TestEngine_RemovingUnknownKeyIsNoop(t *testing.T) {
	t.Parallel()

	cb := &mockCallback{}
	e := grouping.New(cb)
	e.OnRemoved(member(1))
	e.OnSummaryPosted(0, "app1")
	e.OnSummaryRemoved(0, "app1")
	m := member(1)
	m.AppGrouped = true
	e.OnPosted(m)
	cb.AssertNotCalled(t, "RemoveAutogroup", mock.Anything)
	cb.AssertNotCalled(t, "RemoveAutogroupSummary", mock.Anything, mock.Anything)
	assert.Equal(t, grouping.DefaultThreshold, e.Threshold())
	assert.Equal(t, "app1:autogroup", grouping.AutogroupName("app1"))
}
