package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyptra/memtide/internal/profile"
	"github.com/calyptra/memtide/store"
)

func testStore(driver store.Driver) *store.Store {
	return store.New(driver, &profile.Profile{Mode: "dev"})
}

func TestReadRangePaginationCompleteness(t *testing.T) {
	// Five rows, two of them sharing a timestamp so the composite cursor's
	// id tie-break is exercised.
	driver := newFakeDriver(
		logRecord("r1", store.RoleUser, "a", 100),
		logRecord("r2", store.RoleAssistant, "b", 101),
		logRecord("r3", store.RoleUser, "c", 101),
		logRecord("r4", store.RoleAssistant, "d", 102),
		logRecord("r5", store.RoleUser, "e", 103),
	)

	small, err := NewHistoryReader(testStore(driver), 2).ReadRange(context.Background(), nil, 100, 200)
	require.NoError(t, err)
	large, err := NewHistoryReader(testStore(driver), 1000).ReadRange(context.Background(), nil, 100, 200)
	require.NoError(t, err)

	ids := func(records []*store.ChatLog) []string {
		out := make([]string, 0, len(records))
		for _, r := range records {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "r5"}, ids(small))
	assert.Equal(t, ids(large), ids(small))
	// Undersized pages: ceil(5/2) = 3 full fetches plus the short final page.
	assert.GreaterOrEqual(t, driver.listCalls, 3)
}

func TestReadRangeRespectsBounds(t *testing.T) {
	driver := newFakeDriver(
		logRecord("r1", store.RoleUser, "too early", 50),
		logRecord("r2", store.RoleUser, "in range", 100),
		logRecord("r3", store.RoleUser, "at end, excluded", 200),
	)

	records, err := NewHistoryReader(testStore(driver), 10).ReadRange(context.Background(), nil, 100, 200)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r2", records[0].ID)
}

func TestReadRangeExcludesSoftDeletedRows(t *testing.T) {
	deletedTs := int64(150)
	deleted := logRecord("r2", store.RoleAssistant, "retracted answer", 101)
	deleted.DeletedTs = &deletedTs

	driver := newFakeDriver(
		logRecord("r1", store.RoleUser, "Hello", 100),
		deleted,
		logRecord("r3", store.RoleAssistant, "Hi!", 102),
	)

	records, err := NewHistoryReader(testStore(driver), 10).ReadRange(context.Background(), nil, 100, 200)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, "r3", records[1].ID)

	// The surviving rows still pair up; the retracted turn is invisible to
	// the rest of the pipeline.
	SortForPairing(records)
	exchanges := PairExchanges(records)
	require.Len(t, exchanges, 1)
	assert.Equal(t, "Hi!", exchanges[0].AssistantContent)
}

func TestReadRangePersonalityFilter(t *testing.T) {
	other := logRecord("r2", store.RoleUser, "other personality", 101)
	other.PersonalityID = "personality-2"
	driver := newFakeDriver(logRecord("r1", store.RoleUser, "wanted", 100), other)

	personalityID := "personality-1"
	records, err := NewHistoryReader(testStore(driver), 10).ReadRange(context.Background(), &personalityID, 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)
}

func TestSortForPairingGroupsByScopeThenTime(t *testing.T) {
	channelB := logRecord("r1", store.RoleUser, "channel b, earliest overall", 90)
	channelB.ChannelID = "channel-b"

	records := []*store.ChatLog{
		logRecord("r3", store.RoleAssistant, "a second", 102),
		channelB,
		logRecord("r2", store.RoleUser, "a first", 101),
	}

	SortForPairing(records)

	// channel-a rows first (scope order), time-ordered inside the scope.
	assert.Equal(t, "r2", records[0].ID)
	assert.Equal(t, "r3", records[1].ID)
	assert.Equal(t, "r1", records[2].ID)
}

func TestSortForPairingTieBreaksOnID(t *testing.T) {
	records := []*store.ChatLog{
		logRecord("r2", store.RoleAssistant, "same ts", 100),
		logRecord("r1", store.RoleUser, "same ts", 100),
	}

	SortForPairing(records)

	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, "r2", records[1].ID)
}
