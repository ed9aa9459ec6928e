package todo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seoul = time.FixedZone("KST", 9*60*60)

func at(t *testing.T, value string) int64 {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02T15:04", value, seoul)
	require.NoError(t, err)
	return ts.UnixMilli()
}

func TestDayKey_UsesLocation(t *testing.T) {
	// 2024-01-01 23:30 UTC is already Jan 2 in Seoul.
	ms := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC).UnixMilli()

	assert.Equal(t, "2024-01-01", DayKey(ms, time.UTC))
	assert.Equal(t, "2024-01-02", DayKey(ms, seoul))
}

func TestGroupByDay_Scenario(t *testing.T) {
	todos := []Todo{
		{ID: 1, Title: "Buy milk", CreatedAt: at(t, "2024-01-02T10:00")},
		{ID: 2, Title: "Call mom", CreatedAt: at(t, "2024-01-01T09:00")},
	}

	groups := GroupByDay(todos, seoul)

	require.Equal(t, []string{"2024-01-02", "2024-01-01"}, groups.Keys())
	assert.Equal(t, "Buy milk", groups[0].Todos[0].Title)
	assert.Equal(t, "Call mom", groups[1].Todos[0].Title)
}

func TestGroupByDay_OrdersWithinDay(t *testing.T) {
	same := at(t, "2024-03-05T12:00")
	todos := []Todo{
		{ID: 3, Title: "early", CreatedAt: at(t, "2024-03-05T08:00")},
		{ID: 5, Title: "tie-b", CreatedAt: same},
		{ID: 4, Title: "tie-a", CreatedAt: same},
		{ID: 6, Title: "late", CreatedAt: at(t, "2024-03-05T20:00")},
	}

	groups := GroupByDay(todos, seoul)

	require.Len(t, groups, 1)
	var titles []string
	for _, td := range groups[0].Todos {
		titles = append(titles, td.Title)
	}
	assert.Equal(t, []string{"late", "tie-a", "tie-b", "early"}, titles)
}

func TestGroupByDay_KeysDescending(t *testing.T) {
	todos := []Todo{
		{ID: 1, CreatedAt: at(t, "2023-12-31T10:00")},
		{ID: 2, CreatedAt: at(t, "2024-02-01T10:00")},
		{ID: 3, CreatedAt: at(t, "2024-01-15T10:00")},
		{ID: 4, CreatedAt: at(t, "2024-02-01T07:00")},
	}

	groups := GroupByDay(todos, seoul)

	assert.Equal(t, []string{"2024-02-01", "2024-01-15", "2023-12-31"}, groups.Keys())
	assert.Equal(t, 4, groups.Len())
	for i := 1; i < len(groups); i++ {
		prevOldest := groups[i-1].Todos[len(groups[i-1].Todos)-1]
		for _, td := range groups[i].Todos {
			assert.GreaterOrEqual(t, DayKey(prevOldest.CreatedAt, seoul), DayKey(td.CreatedAt, seoul))
		}
	}
}

func TestGroupByDay_Empty(t *testing.T) {
	groups := GroupByDay(nil, seoul)
	assert.Empty(t, groups)
	assert.Empty(t, groups.Flatten())
}

func TestFilter(t *testing.T) {
	todos := []Todo{
		{ID: 1, Title: "Buy Milk"},
		{ID: 2, Title: "call mom"},
		{ID: 3, Title: "우유 사기"},
	}

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"empty query keeps everything", "", []int64{1, 2, 3}},
		{"case insensitive", "MILK", []int64{1}},
		{"substring", "m", []int64{1, 2}},
		{"hangul", "우유", []int64{3}},
		{"whitespace is literal", "   ", nil},
		{"no match", "xyz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int64
			for _, td := range Filter(todos, tt.query) {
				got = append(got, td.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_ReturnsCopy(t *testing.T) {
	todos := []Todo{{ID: 1, Title: "a"}}
	out := Filter(todos, "")
	out[0].Title = "changed"
	assert.Equal(t, "a", todos[0].Title)
}

func TestMatchIndex(t *testing.T) {
	start, end := MatchIndex("Buy Milk", "milk")
	assert.Equal(t, 4, start)
	assert.Equal(t, 8, end)

	start, end = MatchIndex("Buy Milk", "tea")
	assert.Equal(t, -1, start)
	assert.Equal(t, -1, end)

	start, _ = MatchIndex("Buy Milk", "")
	assert.Equal(t, -1, start)
}

func TestFind(t *testing.T) {
	todos := []Todo{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}

	got, ok := Find(todos, 2)
	require.True(t, ok)
	assert.Equal(t, "B", got.Title)

	_, ok = Find(todos, 99)
	assert.False(t, ok)
}
