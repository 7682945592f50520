package ledger

import (
	"fmt"
	"testing"
	"time"

	"sleepsense/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dates(recs []domain.DailyRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Date)
	}
	return out
}

func TestLedger_UpsertKeepsSortedAndUnique(t *testing.T) {
	l := New[domain.DailyRecord]()
	l.Upsert(domain.DailyRecord{Date: "2024-01-15", Quality: 85})
	l.Upsert(domain.DailyRecord{Date: "2024-01-09", Quality: 94})
	l.Upsert(domain.DailyRecord{Date: "2024-01-12", Quality: 68})
	l.Upsert(domain.DailyRecord{Date: "2024-01-09", Quality: 50})

	require.Equal(t, 3, l.Len())
	assert.Equal(t, []string{"2024-01-09", "2024-01-12", "2024-01-15"}, dates(l.Records()))

	got, ok := l.Get("2024-01-09")
	require.True(t, ok)
	assert.Equal(t, 50, got.Quality, "last write wins")
}

func TestLedger_UnparseableDatesSortLast(t *testing.T) {
	l := New(
		domain.DailyRecord{Date: "someday"},
		domain.DailyRecord{Date: "2024-02-01"},
		domain.DailyRecord{Date: "another"},
		domain.DailyRecord{Date: "2024-01-31"},
	)
	assert.Equal(t, []string{"2024-01-31", "2024-02-01", "another", "someday"}, dates(l.Records()))
}

func TestLedger_MixedLayoutsSortByTime(t *testing.T) {
	l := New(
		domain.DailyRecord{Date: "2024/01/03"},
		domain.DailyRecord{Date: "2024-01-02"},
		domain.DailyRecord{Date: "01/01/2024"},
	)
	assert.Equal(t, []string{"01/01/2024", "2024-01-02", "2024/01/03"}, dates(l.Records()))
}

func TestLedger_RecentAndLast(t *testing.T) {
	l := New[domain.DailyRecord]()
	_, ok := l.Last()
	assert.False(t, ok)
	assert.Empty(t, l.Recent(7))

	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		l.Upsert(domain.DailyRecord{Date: d})
	}
	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "2024-01-03", last.Date)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, dates(l.Recent(2)))
	assert.Len(t, l.Recent(7), 3)
}

func TestLedger_RecordsIsACopy(t *testing.T) {
	l := New(domain.DailyRecord{Date: "2024-01-01", Quality: 80})
	recs := l.Records()
	recs[0].Quality = 1

	got, _ := l.Get("2024-01-01")
	assert.Equal(t, 80, got.Quality)
}

func TestLedger_Update(t *testing.T) {
	l := New(domain.LifestyleRecord{Date: "2024-01-01"})
	ok := l.Update("2024-01-01", func(r *domain.LifestyleRecord) { r.UpdatedAt = "now" })
	require.True(t, ok)
	got, _ := l.Get("2024-01-01")
	assert.Equal(t, "now", got.UpdatedAt)

	assert.False(t, l.Update("2024-01-02", func(r *domain.LifestyleRecord) {}))
}

func TestBook_CloneIsIndependent(t *testing.T) {
	b := NewBook()
	b.Daily.Upsert(domain.DailyRecord{Date: "2024-01-01"})
	b.Calendar["2024-01-01"] = domain.CalendarEntry{Quality: 80}

	c := b.Clone()
	c.Daily.Upsert(domain.DailyRecord{Date: "2024-01-02"})
	c.Calendar["2024-01-02"] = domain.CalendarEntry{Quality: 70}
	c.Lifestyle.Upsert(domain.LifestyleRecord{Date: "2024-01-02"})

	assert.Equal(t, 1, b.Daily.Len())
	assert.Len(t, b.Calendar, 1)
	assert.Equal(t, 0, b.Lifestyle.Len())
}

func TestCanonical(t *testing.T) {
	for _, in := range []string{"2024-01-05", "2024/01/05", "01/05/2024", "2024-01-05T08:00:00", "2024-01-05T08:00:00+08:00"} {
		assert.Equal(t, "2024-01-05", Canonical(in), in)
	}
	assert.Equal(t, "someday", Canonical("someday"))
}

func TestLedger_UpsertAllLastWriteWins(t *testing.T) {
	l := New(domain.DailyRecord{Date: "2024-01-03", Quality: 1})
	l.UpsertAll(
		domain.DailyRecord{Date: "2024-01-02", Quality: 2},
		domain.DailyRecord{Date: "2024-01-03", Quality: 3},
		domain.DailyRecord{Date: "2024-01-02", Quality: 4},
		domain.DailyRecord{Date: "2024-01-01", Quality: 5},
	)

	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, dates(l.Records()))
	got, _ := l.Get("2024-01-02")
	assert.Equal(t, 4, got.Quality)
	got, _ = l.Get("2024-01-03")
	assert.Equal(t, 3, got.Quality)

	// 批量写入后单条写入仍按序插入
	l.Upsert(domain.DailyRecord{Date: "2023-12-31"})
	l.Upsert(domain.DailyRecord{Date: "later"})
	assert.Equal(t, []string{"2023-12-31", "2024-01-01", "2024-01-02", "2024-01-03", "later"}, dates(l.Records()))
}

func TestLedger_ManyRecordsStaySortedQuickly(t *testing.T) {
	const n = 5000
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := make([]domain.DailyRecord, 0, n)
	// 倒序写入
	for i := n - 1; i >= 0; i-- {
		recs = append(recs, domain.DailyRecord{Date: base.AddDate(0, 0, i).Format(DateLayout), Quality: i % 100})
	}

	start := time.Now()
	l := New[domain.DailyRecord]()
	for _, r := range recs {
		l.Upsert(r)
	}
	bulk := New(recs...)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second)
	require.Equal(t, n, l.Len())
	require.Equal(t, n, bulk.Len())
	assert.Equal(t, dates(l.Records()), dates(bulk.Records()))
	first, _ := l.Get(base.Format(DateLayout))
	assert.Equal(t, 0, first.Quality)
	last, _ := l.Last()
	assert.Equal(t, base.AddDate(0, 0, n-1).Format(DateLayout), last.Date)
	for i := 1; i < n; i += 997 {
		d := base.AddDate(0, 0, i).Format(DateLayout)
		got, ok := l.Get(d)
		require.True(t, ok, d)
		assert.Equal(t, i%100, got.Quality, fmt.Sprintf("quality at %s", d))
	}
}
