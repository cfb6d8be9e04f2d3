package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup writes a config pointing at a fresh SQLite file and the given
// behavior definition, and clears SORTABLE_* variables of the environment.
func setup(t *testing.T, schemaFile string) string {
	t.Helper()
	for _, k := range []string{"CONFIG", "LOG_LEVEL", "DIALECT", "DSN", "SCHEMA", "STATS", "DEBUG", "SLOW_THRESHOLD"} {
		t.Setenv("SORTABLE_"+k, "")
		require.NoError(t, os.Unsetenv("SORTABLE_"+k))
	}
	dir := t.TempDir()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", schemaFile))
	require.NoError(t, err)
	cfg := fmt.Sprintf("dialect: sqlite\ndsn: file:%s\nschema: %s\nlog_level: error\n",
		filepath.Join(dir, "test.db"), schemaPath)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(cfgPath string, args ...string) (string, error) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// transcript runs each command line in turn and records its output, or its
// error, after a shell-like prompt.
func transcript(t *testing.T, cfgPath string, lines []string) []byte {
	t.Helper()
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "$ sortable %s\n", line)
		out, err := execute(cfgPath, strings.Fields(line)...)
		b.WriteString(out)
		if err != nil {
			fmt.Fprintf(&b, "error: %v\n", err)
		}
	}
	return []byte(b.String())
}

func TestGolden(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{
			name: "insert_and_move",
			lines: []string{
				"init",
				"add -s 1 --set title=a",
				"add -s 1 --set title=b",
				"add -s 1 --set title=c",
				"add -s 1 --set title=d",
				"add -s 1 --set title=x --rank 2",
				"list -s 1",
				"add -s 1 --set title=z --rank 9",
				"move 1 4",
				"down 4",
				"up 5",
				"swap 5 4",
				"show 2",
				"list -s 1",
				"verify",
			},
		},
		{
			name: "remove_and_delete",
			lines: []string{
				"init",
				"add -s 1 --set title=a",
				"add -s 1 --set title=b",
				"add -s 1 --set title=c",
				"add -s 2 --set title=e",
				"remove 2",
				"list -s 1",
				"delete 1",
				"rescope 3 -s 2",
				"list -s 2",
				"list -s 1",
				"add -s 1 --set title=b2 --top",
				"up 2",
				"show 2",
				"verify",
				"repair",
				"list -s 1 --format json",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setup(t, "tasks.yaml")
			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, tt.name, transcript(t, cfg, tt.lines))
		})
	}
}

func TestVerifyAndRepair(t *testing.T) {
	cfg := setup(t, "tasks.yaml")
	for _, line := range []string{"init", "add -s 1 --set title=a", "add -s 1 --set title=b", "add -s 1 --set title=c"} {
		_, err := execute(cfg, strings.Fields(line)...)
		require.NoError(t, err, line)
	}

	// Open a gap behind the ledger's back.
	data, err := os.ReadFile(cfg)
	require.NoError(t, err)
	var dsn string
	for _, l := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(l, "dsn: "); ok {
			dsn = v
		}
	}
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE tasks SET sortable_rank = 7 WHERE id = 2`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = execute(cfg, "verify")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "rank 2 is missing")

	out, err := execute(cfg, "repair", "-s", "1")
	require.NoError(t, err)
	assert.Equal(t, "repaired 2 row(s)\n", out)

	out, err = execute(cfg, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "ok:")

	out, err = execute(cfg, "list", "-s", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2     3   1           c")
	assert.Contains(t, out, "3     2   1           b")
}

func TestStringKeys(t *testing.T) {
	cfg := setup(t, "notes.yaml")
	_, err := execute(cfg, "init")
	require.NoError(t, err)

	_, err = execute(cfg, "add", "--id", "n1", "--set", "body=first")
	require.NoError(t, err)
	out, err := execute(cfg, "--format", "json", "add", "--top", "--set", "body=second", "--set", "pinned=null")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []row  `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ok", resp.Status)
	id, ok := resp.Data[0].ID.(string)
	require.True(t, ok)
	assert.Len(t, id, 36, "generated keys are UUIDs")
	require.NotNil(t, resp.Data[0].Rank)
	assert.Equal(t, 1, *resp.Data[0].Rank)

	out, err = execute(cfg, "show", "n1")
	require.NoError(t, err)
	assert.Contains(t, out, "first: false\nlast: true\nprevious: "+id+"\nnext: -\n")

	out, err = execute(cfg, "bottom", "n1")
	require.NoError(t, err)
	assert.Equal(t, "not moved: Note n1 stays at rank 2\n", out)
}

func TestCommandErrors(t *testing.T) {
	cfg := setup(t, "tasks.yaml")
	_, err := execute(cfg, "init")
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"missing scope", []string{"list"}, ExitFailure, "tasks needs 1 --scope value(s) (project_id), got 0"},
		{"bad scope", []string{"list", "-s", "one"}, ExitFailure, "scope project_id"},
		{"unknown field", []string{"add", "-s", "1", "--set", "color=red"}, ExitFailure, `unknown field "color"`},
		{"bad pair", []string{"add", "-s", "1", "--set", "title"}, ExitFailure, "want name=value"},
		{"bad id", []string{"up", "abc"}, ExitFailure, `invalid id "abc"`},
		{"bad rank", []string{"move", "1", "x"}, ExitFailure, `invalid rank "x"`},
		{"not found", []string{"delete", "42"}, ExitFailure, "not found"},
		{"bad format", []string{"--format", "xml", "list"}, ExitFailure, "invalid format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(cfg, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	t.Run("missing schema", func(t *testing.T) {
		t.Setenv("SORTABLE_SCHEMA", filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := execute(cfg, "list", "-s", "1")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"init", "list", "show", "add", "move", "up", "down", "top", "bottom", "swap", "remove", "rescope", "delete", "verify", "repair"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	add, _, err := cmd.Find([]string{"add"})
	require.NoError(t, err)
	assert.NotNil(t, add.Flags().Lookup("rank"))
	assert.NotNil(t, add.Flags().Lookup("top"))
}
