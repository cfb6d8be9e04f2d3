package schema_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/syssam/sortable/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := schema.Load(strings.NewReader("entity: TodoItem\n"))
	require.NoError(t, err)
	assert.Equal(t, "todo_items", s.Table)
	assert.Equal(t, schema.DefaultIDColumn, s.IDColumn)
	assert.Equal(t, schema.IDInt, s.IDType)
	assert.Equal(t, schema.DefaultRankColumn, s.RankColumn)
	assert.Empty(t, s.ScopeColumns)
	assert.Equal(t, []string{"id", "sortable_rank"}, s.Columns())
}

func TestLoadFull(t *testing.T) {
	doc := `
entity: Task
table: board_tasks
id_column: task_id
id_type: string
rank_column: position
scope_columns: [board_id, lane]
fields:
  - name: title
  - name: points
    type: int
    nullable: true
`
	s, err := schema.Load(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "board_tasks", s.Table)
	assert.Equal(t, schema.IDString, s.IDType)
	assert.Equal(t, []string{"task_id", "position", "board_id", "lane", "title", "points"}, s.Columns())
	assert.Equal(t, []string{"title", "points"}, s.FieldNames())
	assert.Equal(t, schema.TypeString, s.Fields[0].Type)
	assert.True(t, s.Fields[1].Nullable)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "entity: Task\nscope_column: x\n", "field scope_column not found"},
		{"no table", "fields: [{name: title}]\n", "entity or table is required"},
		{"bad id type", "entity: Task\nid_type: uuid\n", "id_type must be"},
		{"duplicate column", "entity: Task\nscope_columns: [id]\n", `duplicate column "id"`},
		{"bad column", "entity: Task\nfields: [{name: \"a b\"}]\n", `invalid column name "a b"`},
		{"bad type", "entity: Task\nfields: [{name: due, type: date}]\n", `unknown field type "date"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sortable.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entity: Person\n"), 0o600))
	s, err := schema.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "people", s.Table)

	_, err = schema.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "tasks", schema.TableName("Task"))
	assert.Equal(t, "book_categories", schema.TableName("BookCategory"))
}
