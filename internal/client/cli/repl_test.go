package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
	args  map[string][]string
	err   error
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	if f.args == nil {
		f.args = map[string][]string{}
	}
	f.args[name] = args
	return f.err
}

func (f *fakeExec) Login(ctx context.Context) error  { return f.record("login", nil) }
func (f *fakeExec) Logout(ctx context.Context) error { return f.record("logout", nil) }
func (f *fakeExec) SelectShop(ctx context.Context, args []string) error {
	return f.record("shop", args)
}
func (f *fakeExec) Shops(ctx context.Context) error      { return f.record("shops", nil) }
func (f *fakeExec) AddProduct(ctx context.Context) error { return f.record("add", nil) }
func (f *fakeExec) EditProduct(ctx context.Context, args []string) error {
	return f.record("edit", args)
}
func (f *fakeExec) Sale(ctx context.Context) error { return f.record("sale", nil) }
func (f *fakeExec) Search(ctx context.Context, args []string) error {
	return f.record("search", args)
}
func (f *fakeExec) Show(ctx context.Context, args []string) error { return f.record("show", args) }
func (f *fakeExec) Variants(ctx context.Context, args []string) error {
	return f.record("variants", args)
}
func (f *fakeExec) Seed(ctx context.Context, args []string) error { return f.record("seed", args) }
func (f *fakeExec) History(ctx context.Context, args []string) error {
	return f.record("history", args)
}
func (f *fakeExec) Sync(ctx context.Context) error   { return f.record("sync", nil) }
func (f *fakeExec) Resync(ctx context.Context) error { return f.record("resync", nil) }
func (f *fakeExec) Status(ctx context.Context) error { return f.record("status", nil) }

// printMu guards captured output written by background workers.
var printMu sync.Mutex

// capturePrintln redirects printlnFn for the duration of the test.
func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	old := printlnFn
	printlnFn = func(a ...any) (int, error) {
		printMu.Lock()
		defer printMu.Unlock()
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = old })
	return &lines
}

func runScript(t *testing.T, f *fakeExec, script string) []string {
	t.Helper()
	out := capturePrintln(t)
	runREPL(context.Background(), f, func() string { return "(A online)" }, bufio.NewReader(strings.NewReader(script)))
	return *out
}

func TestREPL_Dispatch(t *testing.T) {
	f := &fakeExec{}
	runScript(t, f, strings.Join([]string{
		"login", "logout", "shop Loja Centro", "shops", "add", "edit p-1", "sale",
		"search coca", "show p-1", "variants 789", "seed 789 p-2", "history 5",
		"sync", "resync", "status", "exit",
	}, "\n")+"\n")

	assert.Equal(t, []string{
		"login", "logout", "shop", "shops", "add", "edit", "sale",
		"search", "show", "variants", "seed", "history",
		"sync", "resync", "status",
	}, f.calls)
	assert.Equal(t, []string{"Loja", "Centro"}, f.args["shop"])
	assert.Equal(t, []string{"789", "p-2"}, f.args["seed"])
	assert.Equal(t, []string{"5"}, f.args["history"])
}

func TestREPL_MissingArgsPrintsUsage(t *testing.T) {
	f := &fakeExec{}
	out := runScript(t, f, "seed 789\nshow\nquit\n")

	assert.Empty(t, f.calls)
	assert.Contains(t, out, usage["seed"])
	assert.Contains(t, out, usage["show"])
	assert.Contains(t, out, "Bye!")
}

func TestREPL_ErrorDoesNotEndSession(t *testing.T) {
	f := &fakeExec{err: errors.New("boom")}
	out := runScript(t, f, "sync\nstatus\n")

	assert.Equal(t, []string{"sync", "status"}, f.calls)
	assert.Contains(t, out, "Error: boom")
}

func TestREPL_UnknownAndHelp(t *testing.T) {
	f := &fakeExec{}
	out := runScript(t, f, "\nfrobnicate\nhelp\n")

	assert.Empty(t, f.calls)
	assert.Contains(t, out, "Unknown command: frobnicate")
	assert.Contains(t, out, strings.TrimSpace(helpText))
	assert.Contains(t, out, "pos (A online)>")
}

func TestREPL_LastLineWithoutNewline(t *testing.T) {
	f := &fakeExec{}
	runScript(t, f, "status")
	assert.Equal(t, []string{"status"}, f.calls)
}
