package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"todo/internal/backend/googletasks"
	"todo/internal/commands"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
	"todo/internal/testutil"
	"todo/internal/transfer"
)

// runCommand parses argv with the command's own flags, as the dispatcher
// does, and runs it against svc.
func runCommand(t *testing.T, cmd commands.Command, svc service.Service, argv []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(argv); err != nil {
		t.Fatalf("parse %v: %v", argv, err)
	}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{
		Dir:     t.TempDir(),
		Backend: config.BackendRemote,
		Quiet:   quiet,
	}

	code = cmd.Run(context.Background(), cfg, svc, fs.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func seeded(tasks ...service.Task) *testutil.FakeService {
	svc := testutil.NewFakeService()
	for _, t := range tasks {
		svc.AddTask(t.Text, t.Completed)
	}
	return svc
}

func expectCode(t *testing.T, want, got int, stderr string) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d (stderr %q)", want, got, stderr)
	}
}

// Tests for version and help

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "todo 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	for _, want := range []string{"Usage:", "toggle", "Mark tasks completed", "Task references:", "--backend"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestHelpCommand_ForCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, []string{"done"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if !strings.Contains(stdout, "todo toggle <ref...>") {
		t.Errorf("expected toggle usage, got %q", stdout)
	}
	if !strings.Contains(stdout, "Aliases: done") {
		t.Errorf("expected aliases, got %q", stdout)
	}
}

func TestHelpCommand_UnknownCommand(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, []string{"nope"}, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: unknown command: nope\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for list

func TestListCommand_MixedTasks(t *testing.T) {
	svc := seeded(
		service.Task{Text: "buy milk"},
		service.Task{Text: "walk dog", Completed: true},
		service.Task{Text: "call mom"},
	)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	testutil.GoldenString(t, "list_mixed", stdout)
}

func TestListCommand_OpenOnlyKeepsNumbers(t *testing.T) {
	svc := seeded(
		service.Task{Text: "buy milk"},
		service.Task{Text: "walk dog", Completed: true},
		service.Task{Text: "call mom"},
	)

	stdout, _, _ := runCommand(t, &commands.ListCmd{}, svc, []string{"--open"}, false)

	expected := "   1  [ ] buy milk\n   3  [ ] call mom\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_WithIDs(t *testing.T) {
	svc := testutil.NewFakeService()
	for i := 0; i < 10; i++ {
		svc.AddTask("task", false)
	}
	_ = svc.Delete(context.Background(), "1")

	stdout, _, _ := runCommand(t, &commands.ListCmd{}, svc, []string{"--ids"}, false)

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("expected 9 lines, got %d: %q", len(lines), stdout)
	}
	if lines[0] != "   1  2   [ ] task" {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if lines[8] != "   9  10  [ ] task" {
		t.Errorf("unexpected last line %q", lines[8])
	}
}

func TestListCommand_JSON(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"}, service.Task{Text: "walk dog", Completed: true})

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, []string{"--json"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	var got []service.Task
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if diff := cmp.Diff(svc.Tasks(), got); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestListCommand_Empty(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testutil.NewFakeService(), nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "no tasks found\n" {
		t.Errorf("expected %q, got %q", "no tasks found\n", stdout)
	}
}

func TestListCommand_EmptyQuiet(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.ListCmd{}, testutil.NewFakeService(), nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no output, got %q", stdout)
	}
}

func TestListCommand_BackendError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListErr = &service.TransportError{Op: "list", Message: "connection refused"}

	_, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	expectCode(t, exitcode.BackendError, code, stderr)
	if stderr != "error: list: connection refused\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestListCommand_UnexpectedArgument(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.ListCmd{}, testutil.NewFakeService(), []string{"work"}, false)

	expectCode(t, exitcode.UserError, code, stderr)
}

// Tests for add

func TestAddCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"buy", "milk"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "added 1\n" {
		t.Errorf("expected %q, got %q", "added 1\n", stdout)
	}
	want := []service.Task{{ID: "1", Text: "buy milk"}}
	if diff := cmp.Diff(want, svc.Tasks()); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestAddCommand_Done(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"--done", "  walk dog  "}, true)

	expectCode(t, exitcode.Success, code, stderr)
	tasks := svc.Tasks()
	if len(tasks) != 1 || !tasks[0].Completed || tasks[0].Text != "walk dog" {
		t.Errorf("expected one completed trimmed task, got %+v", tasks)
	}
}

func TestAddCommand_BlankNeverReachesStore(t *testing.T) {
	for _, args := range [][]string{nil, {"   "}, {"", "\t"}} {
		svc := testutil.NewFakeService()

		_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, args, false)

		expectCode(t, exitcode.UserError, code, stderr)
		if stderr != "error: text required\n" {
			t.Errorf("unexpected stderr %q", stderr)
		}
		if n := svc.TotalCalls(); n != 0 {
			t.Errorf("expected no store calls, got %d", n)
		}
	}
}

func TestAddCommand_TooLong(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{strings.Repeat("a", service.MaxTextLength+1)}, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if !strings.Contains(stderr, "could not add task") {
		t.Errorf("expected reason in stderr, got %q", stderr)
	}
	if n := svc.Calls("create"); n != 0 {
		t.Errorf("expected no create call, got %d", n)
	}
}

func TestAddCommand_StoreFailure(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateErr = &service.TransportError{Op: "create", Status: 500, Message: "Internal server error"}

	_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"buy milk"}, false)

	expectCode(t, exitcode.BackendError, code, stderr)
	if stderr != "error: could not add task: create: Internal server error\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestAddCommand_RefreshFailureIsWarning(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListErr = &service.TransportError{Op: "list", Message: "connection reset"}

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"buy milk"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "added 1\n" {
		t.Errorf("expected %q, got %q", "added 1\n", stdout)
	}
	if !strings.HasPrefix(stderr, "warning: ") {
		t.Errorf("expected warning, got %q", stderr)
	}
	if len(svc.Tasks()) != 1 {
		t.Error("expected the task to be stored")
	}
}

// Tests for edit

func TestEditCommand(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"}, service.Task{Text: "walk dog", Completed: true})

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"2", "walk", "the", "dog"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	task, _ := service.Find(svc.Tasks(), "2")
	if task.Text != "walk the dog" || !task.Completed {
		t.Errorf("expected text changed and flag kept, got %+v", task)
	}
}

func TestEditCommand_ByID(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"})

	_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"id:1", "buy oat milk"}, true)

	expectCode(t, exitcode.Success, code, stderr)
	if got := svc.Tasks()[0].Text; got != "buy oat milk" {
		t.Errorf("expected updated text, got %q", got)
	}
}

func TestEditCommand_UnchangedSkipsStore(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"})

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"1", "  buy milk "}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "unchanged\n" {
		t.Errorf("expected unchanged, got %q", stdout)
	}
	if n := svc.Calls("update"); n != 0 {
		t.Errorf("expected no update call, got %d", n)
	}
}

func TestEditCommand_EmptyTextDiscarded(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"})

	_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"1", "   "}, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: text required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if n := svc.Calls("update"); n != 0 {
		t.Errorf("expected no update call, got %d", n)
	}
}

func TestEditCommand_BadReferences(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing", nil, "error: task reference required\n"},
		{"invalid", []string{"first", "x"}, "error: invalid task reference: first\n"},
		{"out of range", []string{"5", "x"}, "error: task number out of range: 5\n"},
		{"unknown id", []string{"id:99", "x"}, "error: task not found: 99\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := seeded(service.Task{Text: "buy milk"})

			_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, tt.args, false)

			expectCode(t, exitcode.UserError, code, stderr)
			if stderr != tt.want {
				t.Errorf("expected %q, got %q", tt.want, stderr)
			}
			if n := svc.Calls("update"); n != 0 {
				t.Errorf("expected no update call, got %d", n)
			}
		})
	}
}

func TestEditCommand_StoreFailure(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"})
	svc.UpdateErr = &service.NotFoundError{ID: "1"}

	_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"1", "buy bread"}, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: could not update task: task not found: 1\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for toggle

func TestToggleCommand_Twice(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"})

	stdout, stderr, code := runCommand(t, &commands.ToggleCmd{}, svc, []string{"1"}, false)
	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "completed 1\n" {
		t.Errorf("expected %q, got %q", "completed 1\n", stdout)
	}

	stdout, _, _ = runCommand(t, &commands.ToggleCmd{}, svc, []string{"1"}, false)
	if stdout != "reopened 1\n" {
		t.Errorf("expected %q, got %q", "reopened 1\n", stdout)
	}
	if got := svc.Tasks()[0]; got.Completed || got.Text != "buy milk" {
		t.Errorf("expected original task back, got %+v", got)
	}
}

func TestToggleCommand_Several(t *testing.T) {
	svc := seeded(service.Task{Text: "a"}, service.Task{Text: "b", Completed: true}, service.Task{Text: "c"})

	stdout, stderr, code := runCommand(t, &commands.ToggleCmd{}, svc, []string{"3", "id:2", "3"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "completed 3\nreopened 2\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	if n := svc.Calls("toggle"); n != 2 {
		t.Errorf("expected 2 toggle calls, got %d", n)
	}
}

func TestToggleCommand_NotFound(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"})
	svc.ToggleErr = &service.NotFoundError{ID: "1"}

	_, stderr, code := runCommand(t, &commands.ToggleCmd{}, svc, []string{"1"}, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: could not toggle task: task not found: 1\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestToggleCommand_InvalidRef(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"})

	_, stderr, code := runCommand(t, &commands.ToggleCmd{}, svc, []string{"abc"}, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if n := svc.TotalCalls(); n != 0 {
		t.Errorf("expected no store calls, got %d", n)
	}
}

// Tests for rm

func TestRmCommand_PositionsResolvedUpFront(t *testing.T) {
	svc := seeded(service.Task{Text: "a"}, service.Task{Text: "b"}, service.Task{Text: "c"})

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, svc, []string{"1", "3"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "deleted 2\n" {
		t.Errorf("expected %q, got %q", "deleted 2\n", stdout)
	}
	want := []service.Task{{ID: "2", Text: "b"}}
	if diff := cmp.Diff(want, svc.Tasks()); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestRmCommand_Completed(t *testing.T) {
	svc := seeded(service.Task{Text: "a", Completed: true}, service.Task{Text: "b"}, service.Task{Text: "c", Completed: true})

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, svc, []string{"--completed"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "deleted 2\n" {
		t.Errorf("expected %q, got %q", "deleted 2\n", stdout)
	}
	if tasks := svc.Tasks(); len(tasks) != 1 || tasks[0].Text != "b" {
		t.Errorf("expected only b left, got %+v", tasks)
	}
}

func TestRmCommand_CompletedNone(t *testing.T) {
	svc := seeded(service.Task{Text: "a"})

	stdout, _, code := runCommand(t, &commands.RmCmd{}, svc, []string{"--completed"}, false)

	if code != exitcode.Success || stdout != "nothing to delete\n" {
		t.Errorf("expected nothing to delete, got %d %q", code, stdout)
	}
	if n := svc.Calls("delete"); n != 0 {
		t.Errorf("expected no delete call, got %d", n)
	}
}

func TestRmCommand_CompletedWithRefs(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.RmCmd{}, seeded(service.Task{Text: "a"}), []string{"--completed", "1"}, false)

	expectCode(t, exitcode.UserError, code, stderr)
}

func TestRmCommand_StoreFailure(t *testing.T) {
	svc := seeded(service.Task{Text: "a"})
	svc.DeleteErr = &service.TransportError{Op: "delete", Message: "database is locked"}

	_, stderr, code := runCommand(t, &commands.RmCmd{}, svc, []string{"1"}, false)

	expectCode(t, exitcode.BackendError, code, stderr)
	if stderr != "error: could not delete task: delete: database is locked\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if len(svc.Tasks()) != 1 {
		t.Error("expected the task to remain")
	}
}

// Tests for export

func TestExportCommand_ToFile(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"}, service.Task{Text: "walk dog", Completed: true})
	dest := filepath.Join(t.TempDir(), "backup.json")

	stdout, stderr, code := runCommand(t, &commands.ExportCmd{}, svc, []string{"--out", dest}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "exported 2 tasks to "+dest+"\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var got []service.Task
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if diff := cmp.Diff(svc.Tasks(), got); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}
}

func TestExportCommand_Stdout(t *testing.T) {
	svc := seeded(service.Task{Text: "buy milk"})

	stdout, stderr, code := runCommand(t, &commands.ExportCmd{}, svc, []string{"--out", "-"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	var want bytes.Buffer
	if err := transfer.Encode(&want, svc.Tasks()); err != nil {
		t.Fatal(err)
	}
	if stdout != want.String() {
		t.Errorf("expected %q, got %q", want.String(), stdout)
	}
}

func TestExportCommand_DefaultName(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cmd := &commands.ExportCmd{}
	cmd.SetClock(func() time.Time { return time.Unix(1700000000, 0) })

	_, stderr, code := runCommand(t, cmd, seeded(service.Task{Text: "buy milk"}), nil, true)

	expectCode(t, exitcode.Success, code, stderr)
	if _, err := os.Stat(filepath.Join(dir, "todo_export_1700000000.json")); err != nil {
		t.Errorf("expected export file in working directory: %v", err)
	}
}

// Tests for import

const importDoc = `[{"id":7,"text":"buy milk","completed":true},{"id":9,"text":"walk dog"}]`

func TestImportCommand_ReplaceKeepsIDs(t *testing.T) {
	svc := testutil.NewFakeReplacer()
	svc.AddTask("old", false)
	path := filepath.Join(t.TempDir(), "in.json")
	if err := os.WriteFile(path, []byte(importDoc), 0600); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runCommand(t, &commands.ImportCmd{}, svc, []string{path}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "imported 2 tasks (replace)\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	want := []service.Task{{ID: "7", Text: "buy milk", Completed: true}, {ID: "9", Text: "walk dog"}}
	if diff := cmp.Diff(want, svc.Tasks()); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestImportCommand_RecreateFromStdin(t *testing.T) {
	svc := seeded(service.Task{Text: "old"})
	cmd := &commands.ImportCmd{}
	cmd.SetStdin(strings.NewReader(importDoc))

	stdout, stderr, code := runCommand(t, cmd, svc, []string{"-"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "imported 2 tasks (recreate)\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	want := []service.Task{
		{ID: "1", Text: "old"},
		{ID: "2", Text: "buy milk", Completed: true},
		{ID: "3", Text: "walk dog"},
	}
	if diff := cmp.Diff(want, svc.Tasks()); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestImportCommand_ForcedRecreateOnReplacer(t *testing.T) {
	svc := testutil.NewFakeReplacer()
	cmd := &commands.ImportCmd{}
	cmd.SetStdin(strings.NewReader(importDoc))

	stdout, _, _ := runCommand(t, cmd, svc, []string{"--mode", "recreate", "-"}, false)

	if stdout != "imported 2 tasks (recreate)\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	if n := svc.Calls("replace"); n != 0 {
		t.Errorf("expected no replace call, got %d", n)
	}
}

func TestImportCommand_ReplaceUnsupported(t *testing.T) {
	cmd := &commands.ImportCmd{}
	cmd.SetStdin(strings.NewReader(importDoc))

	_, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), []string{"--mode", "replace", "-"}, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if !strings.Contains(stderr, "use --mode recreate") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestImportCommand_InvalidDocument(t *testing.T) {
	svc := testutil.NewFakeService()
	cmd := &commands.ImportCmd{}
	cmd.SetStdin(strings.NewReader(`[{"text":"ok"},{"text":5}]`))

	_, stderr, code := runCommand(t, cmd, svc, []string{"-"}, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if !strings.HasPrefix(stderr, "error: decode import") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if n := svc.Calls("create"); n != 0 {
		t.Errorf("expected no create call, got %d", n)
	}
}

func TestImportCommand_PartialFailure(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateErr = &service.TransportError{Op: "create", Message: "boom"}
	svc.FailCreateAfter = 1
	cmd := &commands.ImportCmd{}
	cmd.SetStdin(strings.NewReader(importDoc))

	_, stderr, code := runCommand(t, cmd, svc, []string{"-"}, false)

	expectCode(t, exitcode.BackendError, code, stderr)
	if stderr != "error: import stopped after 1 of 2 tasks: create: boom\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if len(svc.Tasks()) != 1 {
		t.Errorf("expected the first task to stay, got %+v", svc.Tasks())
	}
}

func TestImportCommand_Args(t *testing.T) {
	for _, argv := range [][]string{nil, {"a.json", "b.json"}, {"--mode", "merge", "a.json"}} {
		_, stderr, code := runCommand(t, &commands.ImportCmd{}, testutil.NewFakeService(), argv, false)
		expectCode(t, exitcode.UserError, code, stderr)
	}
}

func TestImportCommand_MissingFile(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.ImportCmd{}, testutil.NewFakeService(), []string{filepath.Join(t.TempDir(), "nope.json")}, false)

	expectCode(t, exitcode.UserError, code, stderr)
}

// Tests for watch

// stepNotifier runs step and fires once, then stops.
type stepNotifier struct {
	step func()
	err  error
}

func (n *stepNotifier) Run(ctx context.Context, onChange func()) error {
	if n.err != nil {
		return n.err
	}
	n.step()
	onChange()
	return nil
}

func TestWatchCommand_PrintsAgainOnChange(t *testing.T) {
	svc := testutil.NewFakeService()
	cmd := &commands.WatchCmd{}
	cmd.SetNotifier(&stepNotifier{step: func() { svc.AddTask("buy milk", false) }})

	stdout, stderr, code := runCommand(t, cmd, svc, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	expected := "no tasks found\n------------\n   1  [ ] buy milk\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestWatchCommand_NotifierFailure(t *testing.T) {
	cmd := &commands.WatchCmd{}
	cmd.SetNotifier(&stepNotifier{err: errors.New("connect to change feed: refused")})

	_, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), nil, false)

	expectCode(t, exitcode.BackendError, code, stderr)
}

func TestWatchCommand_UnsupportedBackend(t *testing.T) {
	cmd := &commands.WatchCmd{}
	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{Dir: t.TempDir(), Backend: config.BackendGoogle}

	code := cmd.Run(context.Background(), cfg, testutil.NewFakeService(), nil, &outBuf, &errBuf)

	expectCode(t, exitcode.UserError, code, errBuf.String())
	if errBuf.String() != "error: watch is not supported for the google backend\n" {
		t.Errorf("unexpected stderr %q", errBuf.String())
	}
}

func TestNotifierFor(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendFile, DataFile: filepath.Join(t.TempDir(), "todo_list.json")}
	n, err := commands.NotifierFor(cfg, nil)
	if err != nil {
		t.Fatalf("file notifier: %v", err)
	}
	if closer, ok := n.(io.Closer); ok {
		closer.Close()
	} else {
		t.Error("expected the file notifier to be closable")
	}

	cfg.Backend = config.BackendRemote
	cfg.APIURL = "http://localhost:8000/api"
	if _, err := commands.NotifierFor(cfg, nil); err != nil {
		t.Errorf("feed notifier: %v", err)
	}
}

// Tests for exit code mapping

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitcode.Success},
		{"validation", &service.ValidationError{Field: "text", Reason: "must not be empty"}, exitcode.UserError},
		{"not found", &service.NotFoundError{ID: "1"}, exitcode.UserError},
		{"transport", &service.TransportError{Op: "list"}, exitcode.BackendError},
		{"decode", &service.DecodeError{What: "task list"}, exitcode.BackendError},
		{"auth", &service.TransportError{Op: "list", Err: googletasks.ErrAuth}, exitcode.AuthError},
		{"other", errors.New("disk full"), exitcode.BackendError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commands.ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
