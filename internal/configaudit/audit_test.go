// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package configaudit

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineCheck struct {
	Line  int
	Check Check
	Sev   Severity
}

func summarize(fr FileReport) []lineCheck {
	var out []lineCheck
	for _, f := range fr.Findings {
		out = append(out, lineCheck{Line: f.Line, Check: f.Check, Sev: f.Severity})
	}
	return out
}

func fileReport(t *testing.T, r Report, path string) FileReport {
	t.Helper()
	for _, fr := range r.Files {
		if fr.Path == path {
			return fr
		}
	}
	t.Fatalf("no report for %s", path)
	return FileReport{}
}

func TestAudit_CleanTree(t *testing.T) {
	root := filepath.Join("testdata", "clean")
	report, err := Audit(context.Background(), root)
	require.NoError(t, err)

	var paths []string
	for _, fr := range report.Files {
		paths = append(paths, fr.Path)
	}
	assert.Equal(t, []string{
		filepath.Join(root, ".pylintrc"),
		filepath.Join(root, "jest.config.js"),
		filepath.Join(root, "pyproject.toml"),
		filepath.Join(root, "setup.cfg"),
		filepath.Join(root, "vitest.config.ts"),
	}, paths)
	assert.Empty(t, report.Findings())
	assert.False(t, report.HasErrors())

	pylintrc := fileReport(t, report, filepath.Join(root, ".pylintrc"))
	assert.Equal(t, map[string]bool{
		"missing-module-docstring": false,
		"too-many-arguments":       false,
		"C0301":                    false,
		"useless-suppression":      true,
	}, pylintrc.Rules)
}

func TestAudit_MislabeledTree(t *testing.T) {
	root := filepath.Join("testdata", "mislabeled")
	report, err := Audit(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, report.Files, 3)
	assert.True(t, report.HasErrors())

	eslint := fileReport(t, report, filepath.Join(root, "eslint.config.mjs"))
	assert.Equal(t, FormatScript, eslint.Declared)
	assert.Equal(t, FormatINI, eslint.Detected)
	assert.Equal(t, []lineCheck{
		{Line: 1, Check: CheckFormatMismatch, Sev: SeverityError},
		{Line: 5, Check: CheckPlaceholder, Sev: SeverityError},
	}, summarize(eslint))
	assert.Equal(t, false, eslint.Rules["R0903"])
	assert.Equal(t, false, eslint.Rules["missing-module-docstring"])

	vitest := fileReport(t, report, filepath.Join(root, "vitest.config.ts"))
	assert.Equal(t, []lineCheck{
		{Line: 1, Check: CheckFormatMismatch, Sev: SeverityError},
		{Line: 32, Check: CheckPlaceholder, Sev: SeverityError},
		{Line: 42, Check: CheckPlaceholder, Sev: SeverityError},
	}, summarize(vitest))

	nested := fileReport(t, report, filepath.Join(root, "testing", "vitest.config.ts"))
	assert.Equal(t, []lineCheck{
		{Line: 1, Check: CheckFormatMismatch, Sev: SeverityError},
		{Line: 29, Check: CheckPlaceholder, Sev: SeverityError},
		{Line: 14, Check: CheckCoverage, Sev: SeverityWarning},
	}, summarize(nested))

	counts := report.Count()
	assert.Equal(t, 3, counts[CheckFormatMismatch][SeverityError])
	assert.Equal(t, 4, counts[CheckPlaceholder][SeverityError])
	assert.Equal(t, 1, counts[CheckCoverage][SeverityWarning])
}

func TestAudit_ExplicitFileIsAlwaysChecked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("owner = CHANGEME\n"), 0o600))

	report, err := Audit(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, []lineCheck{{Line: 1, Check: CheckPlaceholder, Sev: SeverityError}}, summarize(report.Files[0]))
}

func TestAudit_MissingPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.cfg")
	report, err := Audit(context.Background(), missing)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)

	got := report.Files[0].Findings
	require.Len(t, got, 1)
	assert.Equal(t, CheckIO, got[0].Check)
	assert.Equal(t, SeverityError, got[0].Severity)
	assert.Contains(t, got[0].Message, "no such file")
}

func TestAudit_CustomSkipDirs(t *testing.T) {
	root := filepath.Join("testdata", "clean")
	a := New(Options{SkipDirs: []string{"pkg"}})
	report, err := a.Audit(context.Background(), root)
	require.NoError(t, err)

	broken := filepath.Join(root, "node_modules", "pkg", "broken.config.js")
	for _, fr := range report.Files {
		assert.NotEqual(t, broken, fr.Path)
	}

	a = New(Options{SkipDirs: []string{".git"}})
	report, err = a.Audit(context.Background(), root)
	require.NoError(t, err)
	fr := fileReport(t, report, broken)
	require.Len(t, fr.Findings, 1)
	assert.Equal(t, CheckSyntax, fr.Findings[0].Check)
}

func TestAudit_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Audit(ctx, filepath.Join("testdata", "clean"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestFindingString(t *testing.T) {
	f := Finding{Path: "setup.cfg", Line: 3, Check: CheckPlaceholder, Severity: SeverityError, Message: "x"}
	assert.Equal(t, "setup.cfg:3: error [placeholder] x", f.String())
	f.Line = 0
	assert.Equal(t, "setup.cfg: error [placeholder] x", f.String())
}

func TestAudit_UnreadableFilesDoNotStopWalk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "setup.cfg"), []byte("[metadata]\nname = CHANGEME\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tox.ini"), []byte("[tox]\nenvlist = py312\n"), 0o600))

	dangling := filepath.Join(dir, "pytest.ini")
	if err := os.Symlink(filepath.Join(dir, "gone.ini"), dangling); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	locked := filepath.Join(dir, "mypy.ini")
	require.NoError(t, os.WriteFile(locked, []byte("[mypy]\nstrict = True\n"), 0o600))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o600) })
	// Root reads files regardless of their mode.
	lockedUnreadable := os.Geteuid() != 0

	report, err := Audit(context.Background(), dir)
	require.NoError(t, err)

	fr := fileReport(t, report, dangling)
	require.Len(t, fr.Findings, 1)
	assert.Equal(t, CheckIO, fr.Findings[0].Check)
	assert.Equal(t, SeverityError, fr.Findings[0].Severity)

	if lockedUnreadable {
		fr = fileReport(t, report, locked)
		require.Len(t, fr.Findings, 1)
		assert.Equal(t, CheckIO, fr.Findings[0].Check)
		assert.Contains(t, fr.Findings[0].Message, "permission denied")
	}

	assert.Equal(t, []lineCheck{{Line: 2, Check: CheckPlaceholder, Sev: SeverityError}},
		summarize(fileReport(t, report, filepath.Join(dir, "setup.cfg"))))
	assert.Empty(t, fileReport(t, report, filepath.Join(dir, "tox.ini")).Findings)
}

type fileState struct {
	Mode    os.FileMode
	ModTime int64
	Data    string
}

func snapshot(t *testing.T, root string) map[string]fileState {
	t.Helper()
	out := make(map[string]fileState)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		st := fileState{Mode: info.Mode(), ModTime: info.ModTime().UnixNano()}
		if !d.IsDir() {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			st.Data = string(data)
		}
		out[path] = st
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestAudit_LeavesFilesUntouched(t *testing.T) {
	root := filepath.Join("testdata", "mislabeled")
	before := snapshot(t, root)

	report, err := Audit(context.Background(), root)
	require.NoError(t, err)
	require.True(t, report.HasErrors())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{root}, func(Report) { cancel() })
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after the first report")
	}

	assert.Equal(t, before, snapshot(t, root))
}
