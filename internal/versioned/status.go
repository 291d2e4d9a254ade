package versioned

// RecordStatus is the derived publication state of one record.
type RecordStatus int

const (
	StatusPublished RecordStatus = iota
	StatusDraftOnly
	StatusArchived
	StatusModifiedOnDraft
	StatusOnLiveOnly
)

type statusFlag struct {
	key   string
	label string
	title string
}

var statusFlags = map[RecordStatus]statusFlag{
	StatusPublished:       {key: "published", label: "Published", title: "Item is published and unchanged"},
	StatusDraftOnly:       {key: "addedtodraft", label: "Draft", title: "Item has not been published yet"},
	StatusArchived:        {key: "archived", label: "Archived", title: "Item is removed from draft and live"},
	StatusModifiedOnDraft: {key: "modified", label: "Modified", title: "Item has unpublished changes"},
	StatusOnLiveOnly:      {key: "removedfromdraft", label: "On live only", title: "Item is published, but has been deleted from draft"},
}

// Key is the machine key of the status, e.g. "addedtodraft".
func (s RecordStatus) Key() string { return statusFlags[s].key }

// Label is the short human label, e.g. "Draft".
func (s RecordStatus) Label() string { return statusFlags[s].label }

// Title is the longer human description.
func (s RecordStatus) Title() string { return statusFlags[s].title }

func (s RecordStatus) String() string { return s.Key() }

// Classify derives a record's status from its presence in the draft and
// live tables and the versions those rows carry. The first matching rule
// wins.
func Classify(hasLive, hasDraft bool, draftVersion, liveVersion *int64) RecordStatus {
	switch {
	case hasLive && !hasDraft:
		return StatusOnLiveOnly
	case !hasLive && !hasDraft:
		return StatusArchived
	case !hasLive && hasDraft:
		return StatusDraftOnly
	case !sameVersion(draftVersion, liveVersion):
		return StatusModifiedOnDraft
	default:
		return StatusPublished
	}
}

func sameVersion(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
