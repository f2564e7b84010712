package runs

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitalgo/bitalgo/internal/domain"
)

func testRun(id, pair string) domain.SimulationRun {
	return domain.SimulationRun{
		ID:        id,
		Timestamp: time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC),
		Pair:      pair,
		Interval:  "24h",
		Plan:      domain.ContributionPlan{PeriodicAmount: decimal.NewFromInt(1000)},
		Summary: domain.Summary{
			Periods:            3,
			TotalInvested:      decimal.NewFromInt(3000),
			TotalUnits:         decimal.RequireFromString("35"),
			FinalReturnRatePct: decimal.RequireFromString("-41.17"),
		},
	}
}

func TestWALStore_SaveAndRunsAfter(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Zero(t, store.CurrentIndex())

	first, err := store.Save(testRun("a", "BTC_KRW"))
	require.NoError(t, err)
	second, err := store.Save(testRun("b", "ETH_KRW"))
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
	assert.Equal(t, second, store.CurrentIndex())

	records, err := store.RunsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Run.ID)
	assert.Equal(t, first, records[0].Index)
	assert.Equal(t, "ETH_KRW", records[1].Run.Pair)
	assert.True(t, records[1].Run.Summary.FinalReturnRatePct.Equal(decimal.RequireFromString("-41.17")))
	assert.True(t, records[1].Run.Plan.PeriodicAmount.Equal(decimal.NewFromInt(1000)))

	records, err = store.RunsAfter(first)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].Run.ID)

	records, err = store.RunsAfter(second)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWALStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	_, err = store.Save(testRun("a", "BTC_KRW"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewWALStore(dir)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.RunsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Run.ID)
}

func TestWALStore_RequiresPair(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Save(testRun("a", ""))
	assert.Error(t, err)
}

func TestWALStore_Nil(t *testing.T) {
	var store *WALStore

	_, err := store.Save(testRun("a", "BTC_KRW"))
	assert.Error(t, err)
	_, err = store.RunsAfter(0)
	assert.Error(t, err)
	assert.Zero(t, store.CurrentIndex())
	assert.Error(t, store.Close())
}
