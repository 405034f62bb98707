package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_StableAcrossInputOrder(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("beta"), 0o600))

	t1 := &Task{Name: "t", Action: Action{Kind: ActionShell, Argv: []string{"true"}}, Inputs: []string{a, b}}
	t2 := &Task{Name: "t", Action: Action{Kind: ActionShell, Argv: []string{"true"}}, Inputs: []string{b, a}}

	f1, err := Fingerprint(t1)
	require.NoError(t, err)
	f2, err := Fingerprint(t2)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
}

func TestFingerprint_ChangesWithActionAndContent(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("v1"), 0o600))

	base := &Task{Name: "t", Action: Action{Kind: ActionShell, Argv: []string{"gen"}}, Inputs: []string{in}}
	orig, err := Fingerprint(base)
	require.NoError(t, err)

	// Different argv, same inputs.
	edited := *base
	edited.Action = Action{Kind: ActionShell, Argv: []string{"gen", "--fast"}}
	changed, err := Fingerprint(&edited)
	require.NoError(t, err)
	assert.NotEqual(t, orig, changed)

	// Same argv, different input content.
	require.NoError(t, os.WriteFile(in, []byte("v2"), 0o600))
	rehashed, err := Fingerprint(base)
	require.NoError(t, err)
	assert.NotEqual(t, orig, rehashed)
}

func TestFingerprint_MissingInputErrors(t *testing.T) {
	tsk := &Task{Name: "t", Inputs: []string{filepath.Join(t.TempDir(), "nope")}}
	_, err := Fingerprint(tsk)
	assert.Error(t, err)
}

func TestFingerprintCache_UpdateAndMatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("data"), 0o600))

	cache := NewFingerprintCache(filepath.Join(dir, "cache"))
	tsk := &Task{Name: "build", Action: Action{Kind: ActionShell, Argv: []string{"make"}}, Inputs: []string{in}}

	// No entry yet: miss, not an error.
	match, err := cache.Matches(tsk)
	require.NoError(t, err)
	assert.False(t, match)

	require.NoError(t, cache.Update(tsk))

	match, err = cache.Matches(tsk)
	require.NoError(t, err)
	assert.True(t, match)

	// Content change invalidates.
	require.NoError(t, os.WriteFile(in, []byte("other"), 0o600))
	match, err = cache.Matches(tsk)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestFingerprintCache_CorruptEntryIsAMiss(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "t"), []byte("not-hex"), 0o600))

	cache := NewFingerprintCache(cacheDir)
	match, err := cache.Matches(&Task{Name: "t"})
	require.NoError(t, err)
	assert.False(t, match)
}

func TestFingerprintCache_SanitizesTaskNames(t *testing.T) {
	cache := NewFingerprintCache(t.TempDir())
	tsk := &Task{Name: "build/linux:amd64"}
	require.NoError(t, cache.Update(tsk))

	match, err := cache.Matches(tsk)
	require.NoError(t, err)
	assert.True(t, match)
}
