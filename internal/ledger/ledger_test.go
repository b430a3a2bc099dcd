package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastOnMissingFileIsEmpty(t *testing.T) {
	f := Open(filepath.Join(t.TempDir(), "nobody.txt"))
	last, err := f.Last()
	require.NoError(t, err)
	assert.Equal(t, "", last)
	assert.False(t, f.Exists())
}

func TestAppendAndLast(t *testing.T) {
	f := Open(filepath.Join(t.TempDir(), "statuses_checked", "_b_axe.txt"))
	require.NoError(t, f.Append("100"))
	require.NoError(t, f.Append(" 200 "))

	last, err := f.Last()
	require.NoError(t, err)
	assert.Equal(t, "200", last)

	lines, err := f.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200"}, lines)
}

func TestAppendRejectsEmpty(t *testing.T) {
	f := Open(filepath.Join(t.TempDir(), "x.txt"))
	assert.Error(t, f.Append("  "))
}

func TestLinesSkipBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replied.txt")
	require.NoError(t, os.WriteFile(path, []byte("1\n\n  \n2\n"), 0o644))
	last, err := Open(path).Last()
	require.NoError(t, err)
	assert.Equal(t, "2", last)
}

func TestSetToleratesDuplicates(t *testing.T) {
	f := Open(filepath.Join(t.TempDir(), "replied.txt"))
	require.NoError(t, f.Append("42"))
	require.NoError(t, f.Append("42"))

	s, err := f.Set()
	require.NoError(t, err)
	assert.True(t, s.Has("42"))
	assert.Len(t, s, 1)
	assert.False(t, s.Has("43"))
}

func TestSetOnMissingFileFails(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.txt")).Set()
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewSet(t *testing.T) {
	s := NewSet("1", "2")
	s.Add("3")
	assert.True(t, s.Has("1"))
	assert.True(t, s.Has("3"))
	assert.False(t, s.Has("4"))
}

func TestTouchKeepsExistingContent(t *testing.T) {
	f := Open(filepath.Join(t.TempDir(), "conf", "replied_to.txt"))
	require.NoError(t, f.Touch())
	s, err := f.Set()
	require.NoError(t, err)
	assert.Empty(t, s)

	require.NoError(t, f.Append("42"))
	require.NoError(t, f.Touch())
	lines, err := f.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, lines)
}
