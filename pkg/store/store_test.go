package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/machine"
	"ufwcfg/pkg/selection"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", DefaultFile))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	sel := selection.For(machine.Ender5Plus)
	sel.Extruder = selection.Extruder{CustomESteps: true, ESteps: 93}
	sel.LinearAdvance = selection.LinearAdvance{Enabled: true, K: 0.06}

	saved, err := s.Save(ctx, "garage-e5p", sel)
	require.NoError(t, err)
	assert.Len(t, saved.ID, 36)
	assert.Equal(t, "ENDER5_PLUS", saved.Printer)
	assert.Len(t, saved.Digest, 64)

	got, err := s.Get(ctx, "garage-e5p")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, saved.Digest, got.Digest)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
	if diff := cmp.Diff(sel, got.Selection, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("selection mismatch (-saved +loaded):\n%s", diff)
	}

	stale, err := got.Stale()
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestSaveReplacesKeepingIdentity(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	first, err := s.Save(ctx, "shop", selection.For(machine.Ender3))
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	second, err := s.Save(ctx, "shop", selection.For(machine.Ender3Pro))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.Digest, second.Digest)

	got, err := s.Get(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, "ENDER3_PRO", got.Printer)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), got.CreatedAt)
	assert.Equal(t, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), got.UpdatedAt)
}

func TestSaveRejectsInvalidSelection(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "none", selection.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSelectionPrinter))

	_, err = s.Save(ctx, "", selection.For(machine.Ender3))
	assert.True(t, errors.Is(err, errors.ErrSelectionRequired))

	profiles, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestListAndDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := s.Save(ctx, name, selection.For(machine.CR10))
		require.NoError(t, err)
	}

	profiles, err := s.List(ctx)
	require.NoError(t, err)
	var names []string
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)

	require.NoError(t, s.Delete(ctx, "mid"))
	err = s.Delete(ctx, "mid")
	assert.True(t, errors.Is(err, errors.ErrStoreNotFound))

	_, err = s.Get(ctx, "mid")
	assert.True(t, errors.Is(err, errors.ErrStoreNotFound))
	assert.Contains(t, err.Error(), `no profile named "mid"`)
}

func TestReopenKeepsProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Save(ctx, "keep", selection.For(machine.Ender5))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
	p, err := s.Get(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "ENDER5", p.Printer)
}

func TestStaleDetectsChangedDigest(t *testing.T) {
	p := &Profile{Selection: selection.For(machine.Ender3), Digest: "0000"}
	stale, err := p.Stale()
	require.NoError(t, err)
	assert.True(t, stale)
}
