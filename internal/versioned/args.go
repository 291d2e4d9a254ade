// Package versioned turns reading modes into query plans over the
// Draft / Live / Versions table triple of a versioned entity, and
// classifies records by comparing their stage rows.
package versioned

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vault-md/versioned/internal/readingmode"
)

var (
	// ErrInvalidArgument marks malformed query arguments.
	ErrInvalidArgument = errors.New("versioned: invalid argument")
	// ErrUnsupportedContext marks a valid mode used where it cannot apply,
	// such as a version lookup against a list query.
	ErrUnsupportedContext = errors.New("versioned: not supported in this context")
)

// ArgumentError describes which argument was rejected and why.
type ArgumentError struct {
	Field   string
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArgument(field, format string, args ...any) error {
	return &ArgumentError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ReadMode selects which rows of the table triple a query sees.
type ReadMode string

const (
	ModeDraft          ReadMode = "draft"
	ModeLive           ReadMode = "live"
	ModeArchive        ReadMode = "archive"
	ModeAllVersions    ReadMode = "all_versions"
	ModeLatestVersions ReadMode = "latest_versions"
	ModeStatus         ReadMode = "status"
	ModeVersion        ReadMode = "version"
)

// ReadModes lists every supported mode.
var ReadModes = []ReadMode{
	ModeDraft, ModeLive, ModeArchive, ModeAllVersions, ModeLatestVersions, ModeStatus, ModeVersion,
}

// Valid reports whether m is one of ReadModes.
func (m ReadMode) Valid() bool {
	switch m {
	case ModeDraft, ModeLive, ModeArchive, ModeAllVersions, ModeLatestVersions, ModeStatus, ModeVersion:
		return true
	default:
		return false
	}
}

// StatusFilter is one member of a status-mode filter.
type StatusFilter string

const (
	FilterPublished StatusFilter = "published"
	FilterDraft     StatusFilter = "draft"
	FilterArchived  StatusFilter = "archived"
	FilterModified  StatusFilter = "modified"
)

// ParseStatusFilters splits a comma separated list such as "draft,modified".
// Members are lower-cased and trimmed but not checked; Validate and
// Translate do that.
func ParseStatusFilters(value string) []StatusFilter {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]StatusFilter, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		result = append(result, StatusFilter(part))
	}
	return result
}

// QueryArgs is the validated input of Translate.
type QueryArgs struct {
	Mode ReadMode
	// ArchiveDate is required for ModeArchive, formatted YYYY-MM-DD.
	ArchiveDate *string
	// ArchiveStage picks the stage history is resolved against in
	// ModeArchive. Empty means Draft.
	ArchiveStage readingmode.Stage
	// Status is required and non-empty for ModeStatus.
	Status []StatusFilter
	// Version is required for ModeVersion. Zero is a value, not absence.
	Version *int64
}

// ArgsForMode maps a reading mode onto the equivalent query arguments.
func ArgsForMode(m readingmode.Mode) QueryArgs {
	if m.IsArchive() {
		date := m.Date
		return QueryArgs{Mode: ModeArchive, ArchiveDate: &date, ArchiveStage: m.Stage}
	}
	if m.Stage == readingmode.StageDraft {
		return QueryArgs{Mode: ModeDraft}
	}
	return QueryArgs{Mode: ModeLive}
}

// ReadingMode is the inverse of ArgsForMode for the modes that have a
// reading-mode form. ok is false for list-only modes such as status.
func (a QueryArgs) ReadingMode() (readingmode.Mode, bool) {
	switch a.Mode {
	case ModeDraft:
		return readingmode.StageMode(readingmode.StageDraft), true
	case ModeLive:
		return readingmode.StageMode(readingmode.StageLive), true
	case ModeArchive:
		if a.ArchiveDate == nil {
			return readingmode.Mode{}, false
		}
		return readingmode.Mode{Kind: readingmode.KindArchive, Date: *a.ArchiveDate, Stage: a.archiveStage()}, true
	default:
		return readingmode.Mode{}, false
	}
}

func (a QueryArgs) archiveStage() readingmode.Stage {
	if a.ArchiveStage == "" {
		return readingmode.StageDraft
	}
	return a.ArchiveStage
}
