package database

import (
	"errors"
	"testing"
)

func TestLookupEntity(t *testing.T) {
	for _, name := range []string{"Page", "page", "PAGE"} {
		e, err := LookupEntity(name)
		if err != nil {
			t.Fatalf("LookupEntity(%q) returned error: %v", name, err)
		}
		if e.Table != "Page" {
			t.Fatalf("LookupEntity(%q) returned %q", name, e.Table)
		}
	}

	if _, err := LookupEntity("Post"); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestEntityTables(t *testing.T) {
	got := Page.Tables()
	want := []string{"Page", "Page_Live", "Page_Versions"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected tables %v, got %v", want, got)
		}
	}
}

func TestEntityValidate(t *testing.T) {
	cases := []struct {
		name   string
		entity Entity
		ok     bool
	}{
		{"page", Page, true},
		{"quoted table", Entity{Table: `Pa"ge`, Fields: []string{"Title"}}, false},
		{"leading digit", Entity{Table: "1Page", Fields: []string{"Title"}}, false},
		{"no fields", Entity{Table: "Note"}, false},
		{"reserved field", Entity{Table: "Note", Fields: []string{"Version"}}, false},
		{"duplicate field", Entity{Table: "Note", Fields: []string{"Body", "Body"}}, false},
		{"field with space", Entity{Table: "Note", Fields: []string{"Body Text"}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.entity.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid entity, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidEntity) {
				t.Fatalf("expected ErrInvalidEntity, got %v", err)
			}
		})
	}
}

func TestRegisterEntity(t *testing.T) {
	note := Entity{Table: "Note", Fields: []string{"Body"}}
	if err := RegisterEntity(note); err != nil {
		t.Fatalf("RegisterEntity returned error: %v", err)
	}
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, "note")
		registryMu.Unlock()
	})

	got, err := LookupEntity("note")
	if err != nil || got.Table != "Note" {
		t.Fatalf("LookupEntity after register: %v %+v", err, got)
	}

	if err := RegisterEntity(Entity{Table: "bad table", Fields: []string{"Body"}}); !errors.Is(err, ErrInvalidEntity) {
		t.Fatalf("expected ErrInvalidEntity, got %v", err)
	}
}
