package database

import (
	"time"

	"github.com/vault-md/versioned/internal/versioned"
)

// Record is one row of an entity as seen through a stage or a version.
type Record struct {
	ID         int64
	Version    int64
	Fields     map[string]string
	LastEdited time.Time
}

// VersionRecord is a row of the history table, including the flags that
// tell which stage the write went to.
type VersionRecord struct {
	Record
	WasDraft     bool
	WasPublished bool
	WasDeleted   bool
}

// StatusRecord summarises where a record currently lives.
type StatusRecord struct {
	ID           int64
	Status       versioned.RecordStatus
	DraftVersion *int64
	LiveVersion  *int64
}
