package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/syssam/sortable/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected operation or invariant violation
	ExitCommandError = 2 // Command error (bad config, schema or database)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// response is the JSON envelope of every command output.
type response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// printer writes command results as aligned text or JSON.
type printer struct {
	format string
	w      io.Writer
	def    *schema.Sortable
}

func (p *printer) json(data any) error {
	return json.NewEncoder(p.w).Encode(response{Status: "ok", Data: data})
}

// rows prints rows as a table: rank, id, scope columns, then fields.
func (p *printer) rows(rows []row) error {
	if p.format == "json" {
		if rows == nil {
			rows = []row{}
		}
		return p.json(rows)
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	header := []string{"RANK", strings.ToUpper(p.def.IDColumn)}
	for _, c := range p.def.ScopeColumns {
		header = append(header, strings.ToUpper(c))
	}
	for _, f := range p.def.Fields {
		header = append(header, strings.ToUpper(f.Name))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(p.cells(r), "\t"))
	}
	return tw.Flush()
}

func (p *printer) cells(r row) []string {
	rank := "-"
	if r.Rank != nil {
		rank = fmt.Sprint(*r.Rank)
	}
	cells := []string{rank, fmt.Sprint(r.ID)}
	for i := range p.def.ScopeColumns {
		var v any
		if i < len(r.Scope) {
			v = r.Scope[i]
		}
		cells = append(cells, cell(v))
	}
	for _, f := range p.def.Fields {
		cells = append(cells, cell(r.Fields[f.Name]))
	}
	return cells
}

// entity names the rows in messages.
func (p *printer) entity() string {
	if p.def.Entity != "" {
		return p.def.Entity
	}
	return p.def.Table
}

func cell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

// message prints a line of text, or {"message": ...} as JSON.
func (p *printer) message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.format == "json" {
		return p.json(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(p.w, msg)
	return err
}

// moved prints the outcome of a move command.
func (p *printer) moved(r row, ok bool) error {
	if p.format == "json" {
		return p.json(map[string]any{"moved": ok, "row": r})
	}
	if !ok {
		rank := "-"
		if r.Rank != nil {
			rank = fmt.Sprint(*r.Rank)
		}
		return p.message("not moved: %s %v stays at rank %s", p.entity(), r.ID, rank)
	}
	return p.rows([]row{r})
}

// neighbours prints a row and its position.
func (p *printer) neighbours(n *neighbours) error {
	if p.format == "json" {
		return p.json(n)
	}
	if err := p.rows([]row{n.Row}); err != nil {
		return err
	}
	id := func(r *row) string {
		if r == nil {
			return "-"
		}
		return fmt.Sprint(r.ID)
	}
	_, err := fmt.Fprintf(p.w, "first: %t\nlast: %t\nprevious: %s\nnext: %s\n",
		n.First, n.Last, id(n.Previous), id(n.Next))
	return err
}
