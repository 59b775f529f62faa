package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ftengine/ftengine/pkg/version"
)

func TestVersionCmdPrintsVersionString(t *testing.T) {
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "ftengine")
	require.Contains(t, buf.String(), version.Version)
}

func TestVersionCmdAddedToRoot(t *testing.T) {
	root := NewRootCmd()
	found, _, err := root.Find([]string{"version"})
	require.NoError(t, err)
	require.Equal(t, "version", found.Name())
}

func TestCreateAddSearchEndToEnd(t *testing.T) {
	dir := t.TempDir()

	root := NewRootCmd()
	root.SetArgs([]string{
		"create", "--data-dir", dir,
		"--field", "body:text",
		"--field", "color:tag",
	})
	require.NoError(t, root.Execute())

	root = NewRootCmd()
	addIn := strings.NewReader(`{"key":"doc:1","score":1.0,"fields":{"body":{"text":"the quick brown fox"},"color":{"tags":["red"]}}}`)
	root.SetIn(addIn)
	root.SetArgs([]string{"add", "--data-dir", dir})
	require.NoError(t, root.Execute())

	root = NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"search", "--data-dir", dir, "quick"})
	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "doc:1")
}

func TestGCRunsWithoutError(t *testing.T) {
	dir := t.TempDir()

	root := NewRootCmd()
	root.SetArgs([]string{"create", "--data-dir", dir, "--field", "body:text"})
	require.NoError(t, root.Execute())

	root = NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"gc", "--data-dir", dir})
	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "gc round complete")
}

func TestClusterMergesAcrossShards(t *testing.T) {
	shard0 := t.TempDir()
	shard1 := t.TempDir()

	for i, dir := range []string{shard0, shard1} {
		root := NewRootCmd()
		root.SetArgs([]string{"create", "--data-dir", dir, "--field", "body:text"})
		require.NoError(t, root.Execute())

		root = NewRootCmd()
		doc := strings.NewReader(`{"key":"doc:` + string(rune('a'+i)) + `","score":1.0,"fields":{"body":{"text":"quick fox"}}}`)
		root.SetIn(doc)
		root.SetArgs([]string{"add", "--data-dir", dir})
		require.NoError(t, root.Execute())
	}

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"cluster", "quick", "--shard-dir", shard0, "--shard-dir", shard1})
	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "doc:a")
	require.Contains(t, buf.String(), "doc:b")
	require.Contains(t, buf.String(), "2 merged result(s)")
}

func TestDebugRendersStats(t *testing.T) {
	dir := t.TempDir()

	root := NewRootCmd()
	root.SetArgs([]string{"create", "--data-dir", dir, "--field", "body:text"})
	require.NoError(t, root.Execute())

	root = NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"debug", "--data-dir", dir})
	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "doc_table_size: 0")
}
