// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RecordLookupCount(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "manifest.sqlite")

	s, err := Open(ctx, path, RunKey("src", "dst"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, ok, err := s.Lookup(ctx, "file-1")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, Entry{SourceID: "file-1", DestID: "copy-1", Kind: KindFile, Name: "a.txt", CopiedAt: at}))
	require.NoError(t, s.Record(ctx, Entry{SourceID: "folder-1", DestID: "new-1", Kind: KindFolder, Name: "Sub"}))

	e, ok, err := s.Lookup(ctx, "file-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Entry{SourceID: "file-1", DestID: "copy-1", Kind: KindFile, Name: "a.txt", CopiedAt: at}, e)

	n, err := s.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Count(ctx, KindFolder)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_RecordReplaces(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "m.sqlite"), "k")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Record(ctx, Entry{SourceID: "f", DestID: "one", Kind: KindFile, Name: "x"}))
	require.NoError(t, s.Record(ctx, Entry{SourceID: "f", DestID: "two", Kind: KindFile, Name: "x"}))

	e, ok, err := s.Lookup(ctx, "f")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", e.DestID)

	n, err := s.Count(ctx, KindFile)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_RunKeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "m.sqlite")

	a, err := Open(ctx, path, RunKey("src", "dst-a"))
	require.NoError(t, err)
	require.NoError(t, a.Record(ctx, Entry{SourceID: "f", DestID: "x", Kind: KindFile, Name: "n"}))
	require.NoError(t, a.Close())

	b, err := Open(ctx, path, RunKey("src", "dst-b"))
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	_, ok, err := b.Lookup(ctx, "f")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.sqlite")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("garbage", 1000)), 0o600))

	_, err := Open(context.Background(), path, "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}
