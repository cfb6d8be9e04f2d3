package cli

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strconv"

	"github.com/google/uuid"
	"github.com/syssam/sortable"
	"github.com/syssam/sortable/dialect"
	"github.com/syssam/sortable/schema"
	"github.com/syssam/sortable/store/sqlstore"
)

// row is the printable form of a record.
type row struct {
	ID     any            `json:"id"`
	Rank   *int           `json:"rank"`
	Scope  []any          `json:"scope,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// placement selects where add puts a new row.
type placement struct {
	top    bool
	rank   int
	ranked bool
}

// movement is one of the move commands.
type movement int

const (
	moveTo movement = iota
	moveUp
	moveDown
	moveTop
	moveBottom
)

// neighbours describes the position of a row in its list.
type neighbours struct {
	Row      row  `json:"row"`
	First    bool `json:"first"`
	Last     bool `json:"last"`
	Previous *row `json:"previous"`
	Next     *row `json:"next"`
}

// table runs ledger operations on the configured table. Keys are passed as
// command line strings so commands do not depend on the key type.
type table interface {
	List(ctx context.Context, scope []any) ([]row, error)
	Show(ctx context.Context, id string) (*neighbours, error)
	Add(ctx context.Context, id string, scope []any, fields map[string]any, at placement) (row, error)
	Move(ctx context.Context, id string, how movement, rank int) (row, bool, error)
	Swap(ctx context.Context, a, b string) ([]row, error)
	Remove(ctx context.Context, id string) (row, error)
	Rescope(ctx context.Context, id string, scope []any) (row, error)
	Delete(ctx context.Context, id string) error
	Verify(ctx context.Context) error
	Repair(ctx context.Context, scope []any, all bool) (int, error)
}

// newTable builds the ledger of def over drv, keyed by int64 or string.
func newTable(def *schema.Sortable, drv dialect.Driver, log *slog.Logger) table {
	cols := sqlstore.TableOf(def)
	opts := []sortable.Option{sortable.WithLogger(log), sortable.WithLabel(def.Table)}
	if def.IDType == schema.IDString {
		return &ledgerTable[string]{
			ledger:  sortable.New[string](sqlstore.New[string](drv, cols), nil, opts...),
			parseID: func(s string) (string, error) { return s, nil },
			newID:   uuid.NewString,
		}
	}
	return &ledgerTable[int64]{
		ledger: sortable.New[int64](sqlstore.New[int64](drv, cols), nil, opts...),
		parseID: func(s string) (int64, error) {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid id %q", s)
			}
			return id, nil
		},
		newID: func() int64 { return 0 },
	}
}

type ledgerTable[K comparable] struct {
	ledger  *sortable.Ledger[K]
	parseID func(string) (K, error)
	newID   func() K
}

func (t *ledgerTable[K]) get(ctx context.Context, id string) (*sortable.Record[K], error) {
	k, err := t.parseID(id)
	if err != nil {
		return nil, err
	}
	return t.ledger.Get(ctx, k)
}

func rowOf[K comparable](rec *sortable.Record[K]) row {
	r := row{ID: rec.ID, Scope: rec.Scope(), Fields: maps.Clone(rec.Fields)}
	if rec.HasRank() {
		n := rec.Rank()
		r.Rank = &n
	}
	return r
}

func (t *ledgerTable[K]) List(ctx context.Context, scope []any) ([]row, error) {
	recs, err := t.ledger.List(ctx, scope...)
	if err != nil {
		return nil, err
	}
	rows := make([]row, len(recs))
	for i, rec := range recs {
		rows[i] = rowOf(rec)
	}
	return rows, nil
}

func (t *ledgerTable[K]) Show(ctx context.Context, id string) (*neighbours, error) {
	rec, err := t.get(ctx, id)
	if err != nil {
		return nil, err
	}
	n := &neighbours{Row: rowOf(rec), First: t.ledger.IsFirst(rec)}
	if !rec.HasRank() {
		return n, nil
	}
	if n.Last, err = t.ledger.IsLast(ctx, rec); err != nil {
		return nil, err
	}
	prev, err := t.ledger.Previous(ctx, rec)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		r := rowOf(prev)
		n.Previous = &r
	}
	next, err := t.ledger.Next(ctx, rec)
	if err != nil {
		return nil, err
	}
	if next != nil {
		r := rowOf(next)
		n.Next = &r
	}
	return n, nil
}

func (t *ledgerTable[K]) Add(ctx context.Context, id string, scope []any, fields map[string]any, at placement) (row, error) {
	key := t.newID()
	if id != "" {
		var err error
		if key, err = t.parseID(id); err != nil {
			return row{}, err
		}
	}
	rec := sortable.NewRecord(key, scope...)
	maps.Copy(rec.Fields, fields)
	var (
		p   *sortable.Pending[K]
		err error
	)
	switch {
	case at.top:
		p, err = t.ledger.InsertAtTop(ctx, rec)
	case at.ranked:
		p, err = t.ledger.InsertAtRank(ctx, rec, at.rank)
	default:
		if err := t.ledger.Save(ctx, rec); err != nil {
			return row{}, err
		}
		return rowOf(rec), nil
	}
	if err != nil {
		return row{}, err
	}
	if rec, err = t.ledger.Commit(ctx, p); err != nil {
		return row{}, err
	}
	return rowOf(rec), nil
}

// Move reports whether the row changed rank.
func (t *ledgerTable[K]) Move(ctx context.Context, id string, how movement, rank int) (row, bool, error) {
	rec, err := t.get(ctx, id)
	if err != nil {
		return row{}, false, err
	}
	before := rec.Rank()
	var out *sortable.Record[K]
	switch how {
	case moveTo:
		out, err = t.ledger.MoveToRank(ctx, rec, rank)
	case moveUp:
		out, err = t.ledger.MoveUp(ctx, rec)
	case moveDown:
		out, err = t.ledger.MoveDown(ctx, rec)
	case moveTop:
		out, err = t.ledger.MoveToTop(ctx, rec)
	case moveBottom:
		out, err = t.ledger.MoveToBottom(ctx, rec)
	}
	if err != nil {
		return row{}, false, err
	}
	if out == nil {
		return rowOf(rec), false, nil
	}
	return rowOf(out), out.Rank() != before, nil
}

func (t *ledgerTable[K]) Swap(ctx context.Context, a, b string) ([]row, error) {
	ra, err := t.get(ctx, a)
	if err != nil {
		return nil, err
	}
	rb, err := t.get(ctx, b)
	if err != nil {
		return nil, err
	}
	if _, err := t.ledger.SwapWith(ctx, ra, rb); err != nil {
		return nil, err
	}
	return []row{rowOf(ra), rowOf(rb)}, nil
}

func (t *ledgerTable[K]) Remove(ctx context.Context, id string) (row, error) {
	rec, err := t.get(ctx, id)
	if err != nil {
		return row{}, err
	}
	if _, err := t.ledger.RemoveFromList(rec); err != nil {
		return row{}, err
	}
	if err := t.ledger.Save(ctx, rec); err != nil {
		return row{}, err
	}
	return rowOf(rec), nil
}

func (t *ledgerTable[K]) Rescope(ctx context.Context, id string, scope []any) (row, error) {
	rec, err := t.get(ctx, id)
	if err != nil {
		return row{}, err
	}
	rec.SetScope(scope...)
	if err := t.ledger.Save(ctx, rec); err != nil {
		return row{}, err
	}
	return rowOf(rec), nil
}

func (t *ledgerTable[K]) Delete(ctx context.Context, id string) error {
	rec, err := t.get(ctx, id)
	if err != nil {
		return err
	}
	return t.ledger.Delete(ctx, rec)
}

func (t *ledgerTable[K]) Verify(ctx context.Context) error {
	return t.ledger.Verify(ctx)
}

func (t *ledgerTable[K]) Repair(ctx context.Context, scope []any, all bool) (int, error) {
	if !all {
		return t.ledger.Repair(ctx, scope...)
	}
	scopes, err := t.ledger.Store().Scopes(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, s := range scopes {
		n, err := t.ledger.Repair(ctx, s...)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
