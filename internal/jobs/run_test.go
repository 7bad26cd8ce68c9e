// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/drivecopy/internal/assess"
	"github.com/ManuGH/drivecopy/internal/drive/drivetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDrive() *drivetest.Fake {
	return drivetest.New().
		AddFolder("src", "Source", "").
		AddFolder("dst", "Destination", "").
		AddFile("f1", "a.txt", "src").
		AddFolder("fb", "Beta", "src").
		AddFile("f2", "b1.txt", "fb").
		AddFolder("fn", "Nested", "fb").
		AddFile("f3", "n1.txt", "fn").
		AddFolder("fa", "Alpha", "src").
		AddFile("f4", "a1.txt", "fa")
}

// testDeps takes an io.Writer so a nil out stays a nil interface.
func testDeps(client *drivetest.Fake, out io.Writer) Deps {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return Deps{
		Client: client,
		Out:    out,
		Clock: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
		NewRunID: func() string { return "run-1" },
	}
}

func testConfig(t *testing.T) Config {
	return Config{
		OutputsDir:          t.TempDir(),
		SourceFolderID:      "src",
		DestinationFolderID: "dst",
		MaxRetries:          2,
		RetryBackoff:        time.Millisecond,
		Concurrency:         2,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun_Success(t *testing.T) {
	fake := sampleDrive()
	var out bytes.Buffer
	cfg := testConfig(t)

	st, err := Run(context.Background(), testDeps(fake, &out), cfg)
	require.NoError(t, err)

	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, "run", st.Operation)
	assert.Equal(t, "Source", st.SourceName)
	assert.Equal(t, "Destination", st.DestinationName)
	assert.True(t, st.Validated)
	assert.Empty(t, st.Error)
	assert.Equal(t, assess.Counts{Files: 4, Folders: 3}, st.Source)
	assert.Equal(t, st.Source, st.Destination)
	require.NotNil(t, st.Copy)
	assert.Equal(t, 4, st.Copy.FilesCopied)
	assert.Equal(t, 3, st.Copy.FoldersCreated)
	assert.Positive(t, st.DurationMS)

	assert.Equal(t, "Folder Name,Number of Files,Number of Folders\r\nSource,4,3\r\n",
		readFile(t, filepath.Join(cfg.OutputsDir, SummaryReport)))
	breakdown := "Folder Name,Number of Files,Number of Child Folders\r\nTOTAL,4,3\r\nAlpha,1,0\r\nBeta,2,1\r\n"
	assert.Equal(t, breakdown, readFile(t, filepath.Join(cfg.OutputsDir, SourceReport)))
	assert.Equal(t, breakdown, readFile(t, filepath.Join(cfg.OutputsDir, DestinationReport)))
	assert.Len(t, st.Reports, 3)

	assert.Equal(t, ScriptCompletedMsg+"\n", out.String())

	saved, err := ReadStatus(cfg.OutputsDir)
	require.NoError(t, err)
	assert.Equal(t, st.RunID, saved.RunID)
	assert.True(t, saved.Validated)
	assert.Equal(t, 4, saved.Copy.FilesCopied)
}

func TestRun_ValidationMismatch(t *testing.T) {
	fake := sampleDrive().FailCopy("f2", -1)
	var out bytes.Buffer
	cfg := testConfig(t)

	st, err := Run(context.Background(), testDeps(fake, &out), cfg)
	require.ErrorIs(t, err, ErrValidationFailed)
	require.NotNil(t, st)

	assert.False(t, st.Validated)
	assert.NotEmpty(t, st.Diff)
	assert.Equal(t, "validate", st.Stage)
	assert.Equal(t, 1, st.Copy.FilesFailed)
	require.Len(t, st.Copy.Failures, 1)
	assert.Equal(t, "b1.txt", st.Copy.Failures[0].Name)
	assert.Equal(t, assess.Counts{Files: 3, Folders: 3}, st.Destination)

	assert.Equal(t, assess.ValidationFailedLine+"\n"+ScriptCompletedMsg+"\n", out.String())

	saved, err := ReadStatus(cfg.OutputsDir)
	require.NoError(t, err)
	assert.False(t, saved.Validated)
	assert.Equal(t, "b1.txt", saved.Copy.Failures[0].Name)
}

func TestRun_UnknownFolderNames(t *testing.T) {
	lookupErr := errors.New("forbidden")
	fake := sampleDrive().FailGet("src", lookupErr).FailGet("dst", lookupErr)
	cfg := testConfig(t)

	st, err := Run(context.Background(), testDeps(fake, nil), cfg)
	require.NoError(t, err)
	assert.Equal(t, UnknownSource, st.SourceName)
	assert.Equal(t, UnknownDestination, st.DestinationName)
	assert.Equal(t, "Folder Name,Number of Files,Number of Folders\r\nUnknown Source Folder,4,3\r\n",
		readFile(t, filepath.Join(cfg.OutputsDir, SummaryReport)))
}

func TestDeps_NilOutDiscards(t *testing.T) {
	d := Deps{}.withDefaults()
	assert.Equal(t, io.Discard, d.Out)
	assert.NotNil(t, d.Clock)
	assert.NotEmpty(t, d.NewRunID())

	var out bytes.Buffer
	d = Deps{Out: &out}.withDefaults()
	assert.Same(t, &out, d.Out)
}

func TestRun_AssessFailure(t *testing.T) {
	fake := sampleDrive().FailList("src", drivetest.ErrInjected)
	var out bytes.Buffer
	cfg := testConfig(t)

	st, err := Run(context.Background(), testDeps(fake, &out), cfg)
	require.ErrorIs(t, err, drivetest.ErrInjected)
	require.NotNil(t, st)
	assert.Equal(t, "assess", st.Stage)
	assert.Zero(t, fake.CallCount("copy"))
	assert.Empty(t, out.String())

	saved, err := ReadStatus(cfg.OutputsDir)
	require.NoError(t, err)
	assert.Equal(t, "assess", saved.Stage)
	assert.NotEmpty(t, saved.Error)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.DestinationFolderID = cfg.SourceFolderID

	st, err := Run(context.Background(), testDeps(sampleDrive(), nil), cfg)
	require.Error(t, err)
	assert.Nil(t, st)
	assert.Contains(t, err.Error(), "same")
}

func TestRun_ResumeSkipsCopiedItems(t *testing.T) {
	fake := sampleDrive()
	cfg := testConfig(t)
	cfg.Resume = true

	first, err := Run(context.Background(), testDeps(fake, nil), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Copy.FilesCopied)
	copies := fake.CallCount("copy")
	creates := fake.CallCount("create")
	assert.FileExists(t, filepath.Join(cfg.OutputsDir, ManifestFile))

	second, err := Run(context.Background(), testDeps(fake, nil), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Copy.FilesCopied)
	assert.Equal(t, 4, second.Copy.FilesSkipped)
	assert.Equal(t, 3, second.Copy.FoldersReused)
	assert.Equal(t, copies, fake.CallCount("copy"))
	assert.Equal(t, creates, fake.CallCount("create"))
	assert.True(t, second.Validated)
}

func TestAssess_WritesSourceReportsOnly(t *testing.T) {
	fake := sampleDrive()
	cfg := testConfig(t)
	cfg.DestinationFolderID = ""

	st, err := Assess(context.Background(), testDeps(fake, nil), cfg)
	require.NoError(t, err)
	assert.Equal(t, "assess", st.Operation)
	assert.Equal(t, assess.Counts{Files: 4, Folders: 3}, st.Source)
	assert.Nil(t, st.Copy)
	assert.Empty(t, st.DestinationName)

	assert.FileExists(t, filepath.Join(cfg.OutputsDir, SummaryReport))
	assert.FileExists(t, filepath.Join(cfg.OutputsDir, SourceReport))
	assert.NoFileExists(t, filepath.Join(cfg.OutputsDir, DestinationReport))
	assert.Zero(t, fake.CallCount("copy"))
}

func TestCopy_NoReports(t *testing.T) {
	fake := sampleDrive()
	var out bytes.Buffer
	cfg := testConfig(t)

	st, err := Copy(context.Background(), testDeps(fake, &out), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Copy.FilesCopied)
	assert.Empty(t, st.Reports)
	assert.NoFileExists(t, filepath.Join(cfg.OutputsDir, SummaryReport))
	assert.Empty(t, out.String())
	assert.Len(t, fake.Children("dst"), 3)
}

func TestCopy_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := Copy(ctx, testDeps(sampleDrive(), nil), testConfig(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "copy", st.Stage)
}
