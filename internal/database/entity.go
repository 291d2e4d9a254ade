package database

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/vault-md/versioned/internal/versioned"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reservedColumns = map[string]bool{
	"ID": true, "Version": true, "LastEdited": true, "RecordID": true,
	"WasDraft": true, "WasPublished": true, "WasDeleted": true,
}

// Entity is a versioned record type: a base table plus the content fields
// its stage triple carries besides ID, Version and LastEdited.
type Entity struct {
	Table  string
	Fields []string
}

// LiveTable is the live stage table of the entity.
func (e Entity) LiveTable() string { return versioned.LiveTable(e.Table) }

// VersionsTable is the history table of the entity.
func (e Entity) VersionsTable() string { return versioned.VersionsTable(e.Table) }

// Tables lists the draft, live and versions tables.
func (e Entity) Tables() []string {
	return []string{e.Table, e.LiveTable(), e.VersionsTable()}
}

// Validate checks that every identifier can be safely quoted into SQL.
func (e Entity) Validate() error {
	if !identPattern.MatchString(e.Table) {
		return fmt.Errorf("%w: table name %q", ErrInvalidEntity, e.Table)
	}
	if len(e.Fields) == 0 {
		return fmt.Errorf("%w: %s has no fields", ErrInvalidEntity, e.Table)
	}
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if !identPattern.MatchString(f) {
			return fmt.Errorf("%w: field name %q", ErrInvalidEntity, f)
		}
		if reservedColumns[f] {
			return fmt.Errorf("%w: field %q is a reserved column", ErrInvalidEntity, f)
		}
		if seen[f] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidEntity, f)
		}
		seen[f] = true
	}
	return nil
}

// Page is the built-in versioned entity created by the embedded migrations.
var Page = Entity{Table: "Page", Fields: []string{"Title", "Content"}}

var (
	registryMu sync.RWMutex
	registry   = map[string]Entity{strings.ToLower(Page.Table): Page}
)

// RegisterEntity adds an entity whose tables the caller has created.
func RegisterEntity(e Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(e.Table)] = e
	return nil
}

// LookupEntity finds a registered entity by table name, ignoring case.
func LookupEntity(name string) (Entity, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[strings.ToLower(name)]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return e, nil
}

// Entities returns the registered entities sorted by table name.
func Entities() []Entity {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Entity, 0, len(registry))
	for _, e := range registry {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Table < result[j].Table })
	return result
}
