package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/vault-md/versioned/internal/database"
)

func setupCLI(t *testing.T) {
	t.Helper()
	t.Setenv("VERSIONED_DIR", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestWritePublishFlow(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "first body\n", "write", "Page", "--set", "Title=hello", "--field", "Content")
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if strings.TrimSpace(out) != "Page #1 saved to draft as version 1" {
		t.Fatalf("unexpected write output %q", out)
	}

	if _, err := runCLI(t, "", "get", "Page", "1"); err == nil {
		t.Fatal("expected the live stage to be empty before publishing")
	}

	out, err = runCLI(t, "", "get", "Page", "1", "--stage", "Draft", "--format", "json")
	if err != nil {
		t.Fatalf("get draft failed: %v", err)
	}
	var rec recordOutput
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("decode get output: %v", err)
	}
	if rec.Fields["Title"] != "hello" || rec.Fields["Content"] != "first body" {
		t.Fatalf("unexpected fields %v", rec.Fields)
	}

	out, err = runCLI(t, "", "publish", "Page", "1")
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if strings.TrimSpace(out) != "Page #1 is at version 2" {
		t.Fatalf("unexpected publish output %q", out)
	}

	out, err = runCLI(t, "", "status", "Page", "1", "--format", "json")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var st statusOutput
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode status output: %v", err)
	}
	if st.Status != "published" {
		t.Fatalf("expected published, got %s", st.Status)
	}

	out, err = runCLI(t, "", "list", "Page", "--format", "json")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var records []recordOutput
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode list output: %v", err)
	}
	if len(records) != 1 || records[0].Version != 2 {
		t.Fatalf("unexpected live list %+v", records)
	}

	out, err = runCLI(t, "", "archive", "Page", "1")
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if strings.TrimSpace(out) != "Page #1 archived" {
		t.Fatalf("unexpected archive output %q", out)
	}

	out, err = runCLI(t, "", "history", "Page", "1", "--format", "json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var versions []versionOutput
	if err := json.Unmarshal([]byte(out), &versions); err != nil {
		t.Fatalf("decode history output: %v", err)
	}
	if len(versions) != 3 || !versions[2].WasDeleted {
		t.Fatalf("unexpected history %+v", versions)
	}

	out, err = runCLI(t, "", "list", "Page", "--status", "archived", "--format", "json")
	if err != nil {
		t.Fatalf("list archived failed: %v", err)
	}
	records = nil
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode list output: %v", err)
	}
	if len(records) != 1 || records[0].ID != 1 {
		t.Fatalf("unexpected archived list %+v", records)
	}
}

func TestTableOutput(t *testing.T) {
	setupCLI(t)

	if _, err := runCLI(t, "", "write", "Page", "--set", "Title=日本語のタイトル", "--set", "Content=line one\nline two"); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out, err := runCLI(t, "", "list", "Page", "--stage", "Draft")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	// headers are upper-cased by the table style
	for _, want := range []string{"ID", "LAST EDITED", "TITLE", "日本語のタイトル", "line one line two"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "", "history", "Page", "1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "saved") {
		t.Fatalf("history output missing event:\n%s", out)
	}
}

func TestModeCommand(t *testing.T) {
	setupCLI(t)

	cases := []struct {
		args []string
		want string
	}{
		{[]string{"mode"}, "Stage.Live (Live)"},
		{[]string{"mode", "--stage", "Draft"}, "Stage.Draft (Draft)"},
		{[]string{"mode", "--archive-date", "2024-01-02"}, "Archive.2024-01-02.Draft (archive of Draft at 2024-01-02)"},
		{[]string{"mode", "--archive-date", "2024-01-02", "--stage", "Live"}, "Archive.2024-01-02.Live (archive of Live at 2024-01-02)"},
	}
	for _, tc := range cases {
		out, err := runCLI(t, "", tc.args...)
		if err != nil {
			t.Fatalf("%v failed: %v", tc.args, err)
		}
		if strings.TrimSpace(out) != tc.want {
			t.Fatalf("%v: expected %q, got %q", tc.args, tc.want, out)
		}
	}

	if _, err := runCLI(t, "", "mode", "--stage", "Preview"); err == nil {
		t.Fatal("expected an invalid stage to fail")
	}
}

func TestModePersistAndReset(t *testing.T) {
	setupCLI(t)

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"mode", "--stage", "Draft", "--persist"}, "Stage.Draft (Draft)"},
		{[]string{"mode"}, "Stage.Draft (Draft)"},
		{[]string{"mode", "--stage", "Live"}, "Stage.Live (Live)"},
		{[]string{"mode", "--reset"}, "Stage.Live (Live)"},
		{[]string{"mode"}, "Stage.Live (Live)"},
	}

	for i, step := range steps {
		out, err := runCLI(t, "", step.args...)
		if err != nil {
			t.Fatalf("step %d %v failed: %v", i, step.args, err)
		}
		if strings.TrimSpace(out) != step.want {
			t.Fatalf("step %d %v: expected %q, got %q", i, step.args, step.want, out)
		}

		// the saved Draft mode makes unpublished records readable without flags
		if i == 1 {
			if _, err := runCLI(t, "", "write", "Page", "--set", "Title=draft only"); err != nil {
				t.Fatalf("write failed: %v", err)
			}
			if _, err := runCLI(t, "", "get", "Page", "1"); err != nil {
				t.Fatalf("get under saved draft mode failed: %v", err)
			}
		}
	}

	if _, err := runCLI(t, "", "get", "Page", "1"); err == nil {
		t.Fatal("expected the live stage to be read again after reset")
	}
	if _, err := runCLI(t, "", "mode", "--persist", "--reset"); err == nil {
		t.Fatal("expected --persist with --reset to fail")
	}
}

func TestInvalidArguments(t *testing.T) {
	setupCLI(t)

	cases := [][]string{
		{"write", "Page"},
		{"write", "Page", "--set", "Title"},
		{"write", "Page", "abc", "--set", "Title=x"},
		{"get", "Widgets", "1"},
		{"list", "Page", "--format", "yaml"},
		{"list", "Page", "--status", "bogus"},
		{"rollback", "Page", "1"},
		{"status", "Page", "0"},
	}
	for _, args := range cases {
		if _, err := runCLI(t, "", args...); err == nil {
			t.Fatalf("%v: expected an error", args)
		}
	}
}

func TestParseFieldFlags(t *testing.T) {
	fields, err := parseFieldFlags([]string{"Title=a=b", " Content =", "Title=c"})
	if err != nil {
		t.Fatalf("parseFieldFlags returned error: %v", err)
	}
	if fields["Title"] != "c" || fields["Content"] != "" || len(fields) != 2 {
		t.Fatalf("unexpected fields %v", fields)
	}

	fields, err = parseFieldFlags([]string{"Title=a=b"})
	if err != nil || fields["Title"] != "a=b" {
		t.Fatalf("expected value with '=', got %v (%v)", fields, err)
	}

	for _, bad := range []string{"Title", "=x"} {
		if _, err := parseFieldFlags([]string{bad}); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestWrapString(t *testing.T) {
	if got := wrapString("short", 10); got != "short" {
		t.Fatalf("expected no wrap, got %q", got)
	}
	if got := wrapString("abcdefgh", 3); got != "abc\ndef\ngh" {
		t.Fatalf("unexpected wrap %q", got)
	}
	// wide runes count double
	if got := wrapString("日本語", 4); got != "日本\n語" {
		t.Fatalf("unexpected wide wrap %q", got)
	}
}

func TestHistoryEvent(t *testing.T) {
	cases := []struct {
		v    database.VersionRecord
		want string
	}{
		{database.VersionRecord{WasDraft: true}, "saved"},
		{database.VersionRecord{WasDraft: true, WasPublished: true}, "published"},
		{database.VersionRecord{WasPublished: true, WasDeleted: true}, "unpublished"},
		{database.VersionRecord{WasDraft: true, WasDeleted: true}, "deleted from draft"},
		{database.VersionRecord{WasDraft: true, WasPublished: true, WasDeleted: true}, "archived"},
	}
	for _, tc := range cases {
		if got := historyEvent(tc.v); got != tc.want {
			t.Fatalf("%+v: expected %q, got %q", tc.v, tc.want, got)
		}
	}
}
