// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package assess

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/drivecopy/internal/drive/drivetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleTree builds:
//
//	src/
//	  root.txt
//	  Beta/ b1.txt b2.txt Nested/ n1.txt
//	  Alpha/ a1.txt
//	  trashed.txt (trashed)
func sampleTree() *drivetest.Fake {
	return drivetest.New().
		AddFolder("src", "Source", "").
		AddFile("root", "root.txt", "src").
		AddFolder("beta", "Beta", "src").
		AddFile("b1", "b1.txt", "beta").
		AddFile("b2", "b2.txt", "beta").
		AddFolder("nested", "Nested", "beta").
		AddFile("n1", "n1.txt", "nested").
		AddFolder("alpha", "Alpha", "src").
		AddFile("a1", "a1.txt", "alpha").
		AddTrashed("trash", "trashed.txt", "src")
}

func TestCountChildren(t *testing.T) {
	fake := sampleTree()

	got, err := CountChildren(context.Background(), fake, "src")
	require.NoError(t, err)
	assert.Equal(t, Counts{Files: 5, Folders: 3}, got)

	got, err = CountChildren(context.Background(), fake, "beta")
	require.NoError(t, err)
	assert.Equal(t, Counts{Files: 3, Folders: 1}, got)

	got, err = CountChildren(context.Background(), fake, "nested")
	require.NoError(t, err)
	assert.Equal(t, Counts{Files: 1}, got)
}

func TestCountChildren_Empty(t *testing.T) {
	fake := drivetest.New().AddFolder("empty", "Empty", "")
	got, err := CountChildren(context.Background(), fake, "empty")
	require.NoError(t, err)
	assert.Equal(t, Counts{}, got)
}

func TestCountChildren_ListError(t *testing.T) {
	fake := sampleTree().FailList("nested", drivetest.ErrInjected)
	_, err := CountChildren(context.Background(), fake, "src")
	require.Error(t, err)
	assert.ErrorIs(t, err, drivetest.ErrInjected)
}

func TestCountDirect(t *testing.T) {
	got, err := CountDirect(context.Background(), sampleTree(), "src")
	require.NoError(t, err)
	assert.Equal(t, Counts{Files: 1, Folders: 2}, got)
}

func TestSummary(t *testing.T) {
	report, err := Summary(context.Background(), sampleTree(), "src", "Source")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, report))
	assert.Equal(t, "Folder Name,Number of Files,Number of Folders\r\nSource,5,3\r\n", buf.String())
}

func TestBreakdown(t *testing.T) {
	report, err := Breakdown(context.Background(), sampleTree(), "src")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, report))
	want := strings.Join([]string{
		"Folder Name,Number of Files,Number of Child Folders",
		"TOTAL,5,3",
		"Alpha,1,0",
		"Beta,3,1",
		"",
	}, "\r\n")
	assert.Equal(t, want, buf.String())
	assert.Equal(t, Counts{Files: 5, Folders: 3}, report.Totals())
}

func TestWriteReadCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outputs", "assessment-2.csv")
	report := Report{
		Header: BreakdownHeader,
		Rows: []Row{
			{Name: TotalRow, Counts: Counts{Files: 3, Folders: 1}},
			{Name: "Name, with comma", Counts: Counts{Files: 3}},
		},
	}

	require.NoError(t, WriteCSV(context.Background(), path, report))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\"Name, with comma\",3,0\r\n")

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.True(t, Compare(report, got).Equal)
}

func TestValidationFailedLine(t *testing.T) {
	assert.Equal(t, "ERROR: VALIDATION FAILED - Source and Destination folder counts do not match.", ValidationFailedLine)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("a,b,c\nx,notanumber,1\n"))
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	src := Report{Header: BreakdownHeader, Rows: []Row{
		{Name: TotalRow, Counts: Counts{Files: 2, Folders: 1}},
		{Name: "Caf\u00e9", Counts: Counts{Files: 1}},
	}}

	t.Run("normalised names match", func(t *testing.T) {
		dst := Report{Header: BreakdownHeader, Rows: []Row{
			{Name: TotalRow, Counts: Counts{Files: 2, Folders: 1}},
			{Name: "Cafe\u0301", Counts: Counts{Files: 1}},
		}}
		got := Compare(src, dst)
		assert.True(t, got.Equal)
		assert.Empty(t, got.Diff)
	})

	t.Run("count mismatch", func(t *testing.T) {
		dst := Report{Header: BreakdownHeader, Rows: []Row{
			{Name: TotalRow, Counts: Counts{Files: 1, Folders: 1}},
			{Name: "Café", Counts: Counts{Files: 0}},
		}}
		got := Compare(src, dst)
		assert.False(t, got.Equal)
		assert.NotEmpty(t, got.Diff)
	})

	t.Run("missing row", func(t *testing.T) {
		dst := Report{Header: BreakdownHeader, Rows: src.Rows[:1]}
		assert.False(t, Compare(src, dst).Equal)
	})
}
