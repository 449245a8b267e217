package domain

import "time"

// Category classifies a notification for preference filtering and metrics.
type Category string

const (
	CategoryAnnouncement Category = "announcement"
	CategoryUpSoon       Category = "up_soon"
	CategoryGateCall     Category = "gate_call"
	CategoryClassStart   Category = "class_start"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryAnnouncement, CategoryUpSoon, CategoryGateCall, CategoryClassStart:
		return true
	}
	return false
}

// ChangeKind identifies which domain transition the feed is reporting.
type ChangeKind string

const (
	ChangeEntryScored  ChangeKind = "entry_scored"
	ChangeEntryStatus  ChangeKind = "entry_status"
	ChangeClassStatus  ChangeKind = "class_status"
	ChangeAnnouncement ChangeKind = "announcement"
)

func (k ChangeKind) IsValid() bool {
	switch k {
	case ChangeEntryScored, ChangeEntryStatus, ChangeClassStatus, ChangeAnnouncement:
		return true
	}
	return false
}

// Entry statuses the capture layer reacts to. The feed reports raw status
// strings; only these two have notification semantics here.
const (
	EntryStatusGateCall = "gate_call"
	ClassStatusActive   = "active"
)

// RunEntry is one entry in a class run order, denormalized into the feed so
// this subsystem never reads domain tables directly.
type RunEntry struct {
	EntryID  string `json:"entry_id"`
	Armband  int    `json:"armband"`
	RunOrder int    `json:"run_order"` // 0 means unset; armband is the fallback ordering key
	Scored   bool   `json:"scored"`
}

// ClassSnapshot carries the combined run order for a class and, when the
// class is paired with a sibling section, the sibling's entries as well.
// Entries may arrive in any order.
type ClassSnapshot struct {
	ClassID       string     `json:"class_id"`
	ClassName     string     `json:"class_name"`
	PairedClassID string     `json:"paired_class_id,omitempty"`
	Entries       []RunEntry `json:"entries"`
}

// Announcement is the denormalized announcement content from the feed.
type Announcement struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// StateChange is one record from the domain collaborator's state-change feed.
// Which fields are populated depends on Kind:
//
//	entry_scored:  EntryID + Snapshot
//	entry_status:  EntryID, OldStatus, NewStatus, ClassName, Armband
//	class_status:  ClassID, ClassName, OldStatus, NewStatus
//	announcement:  Announcement
type StateChange struct {
	Kind         ChangeKind     `json:"kind"`
	TenantID     string         `json:"tenant_id"`
	EntryID      string         `json:"entry_id,omitempty"`
	Armband      int            `json:"armband,omitempty"`
	ClassID      string         `json:"class_id,omitempty"`
	ClassName    string         `json:"class_name,omitempty"`
	OldStatus    string         `json:"old_status,omitempty"`
	NewStatus    string         `json:"new_status,omitempty"`
	Snapshot     *ClassSnapshot `json:"snapshot,omitempty"`
	Announcement *Announcement  `json:"announcement,omitempty"`
}

func (c *StateChange) Validate() error {
	if !c.Kind.IsValid() {
		return ErrInvalidChange
	}
	if c.TenantID == "" {
		return ErrInvalidChange
	}
	switch c.Kind {
	case ChangeEntryScored:
		if c.EntryID == "" || c.Snapshot == nil {
			return ErrInvalidChange
		}
	case ChangeEntryStatus:
		if c.EntryID == "" || c.NewStatus == "" {
			return ErrInvalidChange
		}
	case ChangeClassStatus:
		if c.ClassID == "" || c.NewStatus == "" {
			return ErrInvalidChange
		}
	case ChangeAnnouncement:
		if c.Announcement == nil || c.Announcement.Title == "" {
			return ErrInvalidChange
		}
	}
	return nil
}

// Event is a materialized, render-complete notification. One event is built
// per affected subject and shared across every matching subscription.
type Event struct {
	Category       Category  `json:"category"`
	TenantID       string    `json:"tenant_id"`
	EntryID        string    `json:"entry_id,omitempty"`
	AnnouncementID string    `json:"announcement_id,omitempty"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	URL            string    `json:"url,omitempty"`
	Armband        int       `json:"armband,omitempty"`
	ClassID        string    `json:"class_id,omitempty"`
	ClassName      string    `json:"class_name,omitempty"`
	PositionsAway  int       `json:"positions_away,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
