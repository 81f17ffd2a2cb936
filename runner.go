package parley

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// ContentRenderer transforms formatted text before it is written.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// ViewFormatter turns a view into text for the renderer.
type ViewFormatter func(*domain.View) string

// Runner drives a conversation over line-based IO: it prints the current view and
// reads the number of the option to choose. "exit" or "quit" stops early.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Format   ViewFormatter
	Renderer ContentRenderer

	// OnTurn, when set, receives a snapshot after every step. Returning an error stops the run.
	OnTurn func(context.Context, *domain.Snapshot) error
}

// NewRunner creates a Runner on the given IO with plain text formatting.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{
		Input:  in,
		Output: out,
		Format: PlainView,
	}
}

// PlainView formats a view without markup.
func PlainView(v *domain.View) string {
	var sb strings.Builder
	if v.Text != "" {
		if v.Speaker != "" {
			sb.WriteString(v.Speaker + ": ")
		}
		sb.WriteString(v.Text + "\n")
	}
	for _, o := range v.Options {
		text := o.Text
		if text == "" {
			text = "..."
		}
		sb.WriteString(fmt.Sprintf("  %d) %s\n", o.Index+1, text))
	}
	return sb.String()
}

// Run plays c until it finishes, the input ends or the user quits.
func (r *Runner) Run(ctx context.Context, c *Context) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	format := r.Format
	if format == nil {
		format = PlainView
	}
	lineReader := bufio.NewReader(r.Input)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.OnTurn != nil {
			if err := r.OnTurn(ctx, c.Snapshot()); err != nil {
				return err
			}
		}

		view := c.View()
		output := format(&view)
		if r.Renderer != nil {
			if rendered, err := r.Renderer(output); err == nil {
				output = rendered
			}
		}
		if s := strings.TrimSpace(output); s != "" {
			fmt.Fprintln(r.Output, s)
		}

		if c.IsFinished() {
			return nil
		}
		if len(view.Options) == 0 {
			// Nothing to choose; the host must change the world and reevaluate.
			return nil
		}

		index := 0
		if !r.Headless || len(view.Options) > 1 {
			fmt.Fprint(r.Output, "> ")
			text, err := lineReader.ReadString('\n')
			input := strings.TrimSpace(text)
			if err != nil && (input == "" || !errors.Is(err, io.EOF)) {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("input error: %w", err)
			}
			if input == "exit" || input == "quit" {
				fmt.Fprintln(r.Output, "Bye!")
				return nil
			}
			n, convErr := strconv.Atoi(input)
			if convErr != nil || n < 1 || n > len(view.Options) {
				fmt.Fprintf(r.Output, "Pick a number between 1 and %d.\n", len(view.Options))
				continue
			}
			index = n - 1
		}

		if _, err := c.ChooseOption(ctx, index); err != nil {
			return fmt.Errorf("navigation error: %w", err)
		}
	}
}
