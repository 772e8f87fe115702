package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/form"
)

const helpText = `commands:
  a <number>        set the first number
  b <number>        set the second number
  op <+|-|×|÷>      choose the operator (* / x are accepted too)
  <a> <op> <b>      set everything at once, e.g. 6 ÷ 3
  =                 calculate now and wait for the result
  clear             reset the form
  show              print the current state
  help              show this text
  quit              exit
`

// printer renders views to out. A line is written only when the displayed
// text changes, so a burst of edits produces a single line per outcome.
type printer struct {
	out io.Writer

	mu      sync.Mutex
	last    string
	changed chan struct{}
}

// newPrinter assumes the prompt text has already been shown.
func newPrinter(out io.Writer) *printer {
	return &printer{out: out, last: form.PromptText, changed: make(chan struct{}, 1)}
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) Render(v form.View) {
	p.mu.Lock()
	if v.Text != p.last && v.Phase != form.PhasePending {
		p.last = v.Text
		fmt.Fprintf(p.out, "%s\n", v.Text)
	}
	p.mu.Unlock()

	select {
	case p.changed <- struct{}{}:
	default:
	}
}

// repl interprets one command line at a time against a form controller.
type repl struct {
	form    *form.Controller
	printer *printer
	// wait bounds how long "=" blocks for a result.
	wait time.Duration
}

// exec runs line and reports whether the session should end.
func (r *repl) exec(line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		r.printer.printf("%s", helpText)
	case "clear":
		r.form.Clear()
	case "show":
		r.show()
	case "=":
		r.form.Submit()
		r.awaitSettled()
	case "a":
		r.form.SetFirst(strings.Join(args, " "))
	case "b":
		r.form.SetSecond(strings.Join(args, " "))
	case "op":
		if len(args) != 1 {
			r.printer.printf("usage: op <+|-|×|÷>\n")
			return false
		}
		r.setOperator(args[0])
	default:
		r.expression(fields, line)
	}
	return false
}

// expression handles "<a> <op> <b>".
func (r *repl) expression(fields []string, line string) {
	if len(fields) != 3 {
		r.printer.printf("unknown command %q, type help\n", line)
		return
	}
	op, err := calculator.ParseOperator(fields[1])
	if err != nil {
		r.printer.printf("unknown operator %q\n", fields[1])
		return
	}
	r.form.SetFirst(fields[0])
	r.form.SetOperator(op)
	r.form.SetSecond(fields[2])
}

func (r *repl) setOperator(s string) {
	op, err := calculator.ParseOperator(s)
	if err != nil {
		r.printer.printf("unknown operator %q\n", s)
		return
	}
	r.form.SetOperator(op)
}

func (r *repl) show() {
	v := r.form.View()
	first, second := v.First, v.Second
	if first == "" {
		first = "(" + form.FirstPlaceholder + ")"
	}
	if second == "" {
		second = "(" + form.SecondPlaceholder + ")"
	}
	r.printer.printf("%s %s %s\n%s\n", first, v.Operator.Symbol(), second, v.Text)
}

// awaitSettled blocks until no calculation is pending or in flight, then
// makes sure the outcome has been printed.
func (r *repl) awaitSettled() {
	deadline := time.NewTimer(r.wait)
	defer deadline.Stop()

	for {
		v := r.form.View()
		switch v.Phase {
		case form.PhasePending, form.PhaseInFlight:
		default:
			// The controller may not have notified yet; printing is deduplicated.
			r.printer.Render(v)
			return
		}
		select {
		case <-r.printer.changed:
		case <-deadline.C:
			return
		}
	}
}
