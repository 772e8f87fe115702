package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/calculator/calculatortest"
	"go-chi-calculator/internal/form"
)

type session struct {
	repl *repl
	buf  *bytes.Buffer
}

func newSession(t *testing.T, stub *calculatortest.Stub, opts form.Options) *session {
	t.Helper()
	buf := &bytes.Buffer{}
	p := newPrinter(buf)
	opts.Logger = zap.NewNop()
	opts.OnChange = p.Render
	ctl := form.New(stub, opts)
	t.Cleanup(ctl.Close)
	return &session{repl: &repl{form: ctl, printer: p, wait: 2 * time.Second}, buf: buf}
}

func (s *session) run(lines ...string) bool {
	for _, l := range lines {
		if s.repl.exec(l) {
			return true
		}
	}
	return false
}

func (s *session) output() string {
	s.repl.printer.mu.Lock()
	defer s.repl.printer.mu.Unlock()
	return s.buf.String()
}

func TestReplExpressionThenSubmit(t *testing.T) {
	stub := &calculatortest.Stub{}
	s := newSession(t, stub, form.Options{})

	s.run("5 + 3", "=")

	assert.Contains(t, s.output(), "5 + 3 = 8\n")
	assert.Equal(t, []calculatortest.Call{{Op: calculator.OpAdd, A: 5, B: 3}}, stub.Calls())
}

func TestReplFieldCommands(t *testing.T) {
	s := newSession(t, &calculatortest.Stub{}, form.Options{})

	s.run("a 6", "op /", "b 0", "=")
	assert.Contains(t, s.output(), "错误: "+calculator.DivideByZeroMessage+"\n")

	s.run("b 4", "op x", "=")
	assert.Contains(t, s.output(), "6 × 4 = 24\n")
}

func TestReplTransportFailure(t *testing.T) {
	stub := &calculatortest.Stub{
		Handler: func(context.Context, calculatortest.Call) (calculator.CalcResponse, error) {
			return calculator.CalcResponse{}, errors.New("connection refused")
		},
	}
	s := newSession(t, stub, form.Options{})

	s.run("1 - 2", "=")

	out := s.output()
	assert.Contains(t, out, "错误: 计算失败\n")
	assert.NotContains(t, out, "connection refused")
}

func TestReplDebouncedEdits(t *testing.T) {
	stub := &calculatortest.Stub{}
	mock := clock.NewMock()
	s := newSession(t, stub, form.Options{Debounce: form.DefaultDebounce, Clock: mock})

	s.run("5 × 3")
	assert.Empty(t, stub.Calls())

	mock.Add(form.DefaultDebounce)

	require.Eventually(t, func() bool {
		return strings.Contains(s.output(), "5 × 3 = 15\n")
	}, 2*time.Second, time.Millisecond)
	assert.Len(t, stub.Calls(), 1, "the three edits coalesce into one call")
}

func TestReplShowAndClear(t *testing.T) {
	s := newSession(t, &calculatortest.Stub{}, form.Options{})

	s.run("a 7", "op ÷", "show")
	assert.Contains(t, s.output(), "7 ÷ ("+form.SecondPlaceholder+")\n"+form.PromptText+"\n")

	s.run("2 * 2", "=", "clear", "show")
	out := s.output()
	assert.Contains(t, out, "2 × 2 = 4\n")
	assert.True(t, strings.HasSuffix(out,
		"("+form.FirstPlaceholder+") + ("+form.SecondPlaceholder+")\n"+form.PromptText+"\n"))
}

func TestReplRejectsBadInput(t *testing.T) {
	stub := &calculatortest.Stub{}
	s := newSession(t, stub, form.Options{})

	assert.False(t, s.run("op %", "5 % 3", "hello", "op", ""))
	out := s.output()
	assert.Contains(t, out, `unknown operator "%"`)
	assert.Contains(t, out, `unknown command "hello"`)
	assert.Contains(t, out, "usage: op")

	s.run("a abc", "b 1", "=")
	assert.Empty(t, stub.Calls(), "invalid operands never reach the service")
}

func TestReplQuitAndHelp(t *testing.T) {
	s := newSession(t, &calculatortest.Stub{}, form.Options{})

	assert.False(t, s.run("help"))
	assert.Contains(t, s.output(), "commands:")
	assert.True(t, s.run("quit"))
	assert.True(t, s.run("EXIT"))
}

func TestComplete(t *testing.T) {
	assert.Equal(t, []string{"clear"}, complete("cl"))
	assert.Equal(t, []string{"quit"}, complete("q"))
	assert.Len(t, complete(""), len(commands))
	assert.Empty(t, complete("zzz"))
}
