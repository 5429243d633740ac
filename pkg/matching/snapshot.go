package matching

import (
	"github.com/Ramsey-B/thistle/pkg/models"
)

// Snapshot is an immutable copy of the active blacklist taken once per pass.
type Snapshot struct {
	entries []models.BlacklistEntry
}

// NewSnapshot copies the active entries. Later changes to the input slice
// or its entries do not affect the snapshot.
func NewSnapshot(entries []models.BlacklistEntry) *Snapshot {
	active := make([]models.BlacklistEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsActive {
			continue
		}
		entry.SecondaryNames = append(models.StringList(nil), entry.SecondaryNames...)
		entry.PhoneNumbers = append(models.PhoneNumbers(nil), entry.PhoneNumbers...)
		entry.PrimaryName = copyText(entry.PrimaryName)
		entry.RawNamePhoneText = copyText(entry.RawNamePhoneText)
		entry.Address1 = copyText(entry.Address1)
		entry.Address2 = copyText(entry.Address2)
		active = append(active, entry)
	}
	return &Snapshot{entries: active}
}

func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entry slice.
func (s *Snapshot) Entries() []models.BlacklistEntry {
	return append([]models.BlacklistEntry(nil), s.entries...)
}

func copyText(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
