package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/vault-md/versioned/internal/versioned"
)

func mustTranslate(t *testing.T, args versioned.QueryArgs, scope versioned.Scope) versioned.FilterPlan {
	t.Helper()
	plan, err := versioned.Translate(args, Page.Table, scope)
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	return plan
}

func TestRenderStage(t *testing.T) {
	plan := mustTranslate(t, versioned.QueryArgs{Mode: versioned.ModeLive}, versioned.ScopeList)

	query, args, err := RenderList(Page, plan)
	if err != nil {
		t.Fatalf("RenderList returned error: %v", err)
	}
	want := `SELECT "Page_Live"."ID", "Page_Live"."Version", "Page_Live"."Title", "Page_Live"."Content", "Page_Live"."LastEdited" FROM "Page_Live" AS "Page_Live" ORDER BY "Page_Live"."ID", "Page_Live"."Version"`
	if query != want {
		t.Fatalf("unexpected query:\n got %s\nwant %s", query, want)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestRenderSingleAddsIDPredicate(t *testing.T) {
	plan := mustTranslate(t, versioned.QueryArgs{Mode: versioned.ModeStatus, Status: []versioned.StatusFilter{versioned.FilterDraft}}, versioned.ScopeSingle)

	query, args, err := RenderSingle(Page, plan, 7)
	if err != nil {
		t.Fatalf("RenderSingle returned error: %v", err)
	}
	wantWhere := `WHERE "Page"."ID" = ? AND (("Page_Live"."ID" IS NULL AND "Page"."ID" IS NOT NULL))`
	if !strings.Contains(query, wantWhere) {
		t.Fatalf("expected %q in %s", wantWhere, query)
	}
	if !strings.Contains(query, `LEFT JOIN "Page_Live" AS "Page_Live" ON "Page"."ID" = "Page_Live"."ID"`) {
		t.Fatalf("expected live join in %s", query)
	}
	if len(args) != 1 || args[0] != int64(7) {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestRenderArchiveBindsNextDay(t *testing.T) {
	date := "2024-02-28"
	plan := mustTranslate(t, versioned.QueryArgs{Mode: versioned.ModeArchive, ArchiveDate: &date}, versioned.ScopeList)

	query, args, err := RenderList(Page, plan)
	if err != nil {
		t.Fatalf("RenderList returned error: %v", err)
	}
	if !strings.Contains(query, `m."WasDraft" = 1`) {
		t.Fatalf("expected draft history filter in %s", query)
	}
	if len(args) != 1 || args[0] != "2024-02-29 00:00:00" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestRenderListRejectsSingleRecordPlans(t *testing.T) {
	version := int64(1)
	plan := mustTranslate(t, versioned.QueryArgs{Mode: versioned.ModeVersion, Version: &version}, versioned.ScopeSingle)

	if _, _, err := RenderList(Page, plan); !errors.Is(err, versioned.ErrUnsupportedContext) {
		t.Fatalf("expected ErrUnsupportedContext, got %v", err)
	}

	query, args, err := RenderSingle(Page, plan, 3)
	if err != nil {
		t.Fatalf("RenderSingle returned error: %v", err)
	}
	if len(args) != 2 || args[0] != int64(1) || args[1] != int64(3) {
		t.Fatalf("expected version then id args, got %v for %s", args, query)
	}
}

func TestRenderRejectsForeignPlan(t *testing.T) {
	plan, err := versioned.Translate(versioned.QueryArgs{Mode: versioned.ModeDraft}, "Note", versioned.ScopeList)
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if _, _, err := RenderList(Page, plan); err == nil {
		t.Fatalf("expected error rendering a Note plan for Page")
	}
}
