package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/fraud"
	"github.com/KaramelBytes/edadash/internal/schema"
)

func settings(t *testing.T) Settings {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "creditcard.csv"),
		[]byte("Time,Amount,Class\n0,10,0\n3600,20,0\n7200,30,0\n90000,1000,1\n93600,15,0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marketing_campaign.csv"),
		[]byte("ID;MntWines;MntFruits;Recency\n1;100;50;10\n2;200;75;20\n"), 0o644))
	return Settings{
		DataDir:           dir,
		FraudPatterns:     []string{"*credit*.csv"},
		MarketingPatterns: []string{"*marketing*.csv"},
		Schema:            schema.Default(),
		Fraud:             fraud.DefaultOptions(),
	}
}

func TestSessionLoadsLazily(t *testing.T) {
	s := New(settings(t))
	p, err := s.Fraud()
	require.NoError(t, err)
	again, _ := s.Fraud()
	assert.Same(t, p, again)
	assert.Equal(t, "loaded 5 transactions (1 frauds, 20.00%)", s.FraudStatus())
	assert.Equal(t, "loaded 2 customers (2 spend columns)", s.MarketingStatus())
}

func TestSessionsDoNotShareTables(t *testing.T) {
	st := settings(t)
	a, b := New(st), New(st)
	assert.NotEqual(t, a.ID, b.ID)

	ta, err := a.Marketing()
	require.NoError(t, err)
	require.NoError(t, ta.SetFloats("Cluster", []float64{0, 1}))

	tb, err := b.Marketing()
	require.NoError(t, err)
	assert.False(t, tb.Has("Cluster"))
	again, _ := a.Marketing()
	assert.False(t, again.Has("Cluster"), "callers receive copies")
}

func TestSessionMissingInput(t *testing.T) {
	st := settings(t)
	st.FraudPatterns = []string{"*nothing*.csv"}
	s := New(st)
	_, err := s.Fraud()
	assert.True(t, errors.Is(err, dataset.ErrFileNotFound))
	assert.True(t, strings.HasPrefix(s.FraudStatus(), "unavailable: "))
}

func TestStoreSweep(t *testing.T) {
	st := NewStore(settings(t), time.Minute)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	a, created := st.GetOrCreate("")
	require.True(t, created)
	same, created := st.GetOrCreate(a.ID)
	assert.False(t, created)
	assert.Same(t, a, same)

	clock = clock.Add(30 * time.Second)
	b, _ := st.GetOrCreate("unknown-id")
	assert.NotEqual(t, "unknown-id", b.ID)
	assert.Equal(t, 2, st.Len())

	clock = clock.Add(45 * time.Second)
	assert.Equal(t, 1, st.Sweep())
	_, ok := st.Get(a.ID)
	assert.False(t, ok)
	_, ok = st.Get(b.ID)
	assert.True(t, ok)
}

func TestSessionRetriesFailedLoad(t *testing.T) {
	st := settings(t)
	dir := t.TempDir()
	st.DataDir = dir
	s := New(st)

	_, err := s.Fraud()
	require.True(t, errors.Is(err, dataset.ErrFileNotFound))
	_, err = s.Marketing()
	require.True(t, errors.Is(err, dataset.ErrFileNotFound))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "creditcard.csv"),
		[]byte("Time,Amount,Class\n0,10,0\n3600,20,1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marketing_campaign.csv"),
		[]byte("ID;MntWines;Recency\n1;100;10\n"), 0o644))

	p, err := s.Fraud()
	require.NoError(t, err)
	assert.Equal(t, "loaded 2 transactions (1 frauds, 50.00%)", s.FraudStatus())
	again, err := s.Fraud()
	require.NoError(t, err)
	assert.Same(t, p, again)

	tbl, err := s.Marketing()
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Rows())
}
