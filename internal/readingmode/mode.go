// Package readingmode tracks which stage of versioned data a request reads:
// the draft stage, the live stage, or the archived state of a stage at a date.
package readingmode

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidArgument is returned for malformed stages, dates or mode strings.
var ErrInvalidArgument = errors.New("readingmode: invalid argument")

// Stage names one of the two stage tables of a versioned entity.
type Stage string

const (
	StageDraft Stage = "Draft"
	StageLive  Stage = "Live"
)

// Kind is the shape of a reading mode string.
type Kind string

const (
	KindStage   Kind = "Stage"
	KindArchive Kind = "Archive"
)

// DefaultMode is used when nothing else is configured.
const DefaultMode = "Stage.Live"

// DateLayout is the only accepted archive date format.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Mode is the parsed form of a reading mode string such as "Stage.Draft" or
// "Archive.2024-01-01.Live".
type Mode struct {
	Kind  Kind
	Stage Stage
	Date  string
}

// ValidateStage rejects anything but Draft and Live.
func ValidateStage(stage Stage) error {
	switch stage {
	case StageDraft, StageLive:
		return nil
	default:
		return fmt.Errorf("%w: invalid stage %q (valid values: Draft, Live)", ErrInvalidArgument, stage)
	}
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	if !datePattern.MatchString(value) {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, must be YYYY-MM-DD", ErrInvalidArgument, value)
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, must be YYYY-MM-DD", ErrInvalidArgument, value)
	}
	return t, nil
}

// Parse validates a reading mode string against the grammar
//
//	Stage.<Draft|Live>
//	Archive.<YYYY-MM-DD>.<Draft|Live>
func Parse(raw string) (Mode, error) {
	parts := strings.Split(raw, ".")
	switch Kind(parts[0]) {
	case KindStage:
		if len(parts) != 2 {
			break
		}
		stage := Stage(parts[1])
		if err := ValidateStage(stage); err != nil {
			return Mode{}, err
		}
		return Mode{Kind: KindStage, Stage: stage}, nil
	case KindArchive:
		if len(parts) != 3 {
			break
		}
		if _, err := ParseDate(parts[1]); err != nil {
			return Mode{}, err
		}
		stage := Stage(parts[2])
		if err := ValidateStage(stage); err != nil {
			return Mode{}, err
		}
		return Mode{Kind: KindArchive, Date: parts[1], Stage: stage}, nil
	}
	return Mode{}, fmt.Errorf("%w: malformed reading mode %q", ErrInvalidArgument, raw)
}

// StageMode builds "Stage.<stage>".
func StageMode(stage Stage) Mode {
	return Mode{Kind: KindStage, Stage: stage}
}

// ArchiveMode builds "Archive.<date>.<stage>".
func ArchiveMode(date time.Time, stage Stage) Mode {
	return Mode{Kind: KindArchive, Date: date.Format(DateLayout), Stage: stage}
}

func (m Mode) String() string {
	switch m.Kind {
	case KindStage:
		return string(KindStage) + "." + string(m.Stage)
	case KindArchive:
		return string(KindArchive) + "." + m.Date + "." + string(m.Stage)
	default:
		return ""
	}
}

// IsArchive reports whether the mode reads historical rows.
func (m Mode) IsArchive() bool {
	return m.Kind == KindArchive
}
