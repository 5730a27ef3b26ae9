package upload

import "reflect"

// List is the ordered entry list behind an upload field. It is not safe for
// concurrent use; fields guard it with their own lock.
type List struct {
	entries []Entry
}

// NewList returns a normalized list of entries.
func NewList(entries ...Entry) *List {
	l := &List{}
	l.Replace(entries...)
	return l
}

// Len returns the number of entries.
func (l *List) Len() int { return len(l.entries) }

// Entries returns a copy of the entries in order.
func (l *List) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Index returns the position of the entry with the given id, or -1.
func (l *List) Index(id string) int {
	for i := range l.entries {
		if l.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Add appends entries and normalizes.
func (l *List) Add(entries ...Entry) {
	l.entries = append(l.entries, entries...)
	l.Normalize()
}

// Replace swaps the whole list for entries and normalizes.
func (l *List) Replace(entries ...Entry) {
	l.entries = append([]Entry(nil), entries...)
	l.Normalize()
}

// Move relocates the entry at from so that it ends up at to: remove, then
// insert. to is clamped to the list bounds. It reports whether the list changed.
func (l *List) Move(from, to int) bool {
	n := len(l.entries)
	if from < 0 || from >= n || from == to {
		return false
	}
	if to < 0 {
		to = 0
	}
	if to >= n {
		to = n - 1
	}
	if from == to {
		return false
	}
	e := l.entries[from]
	l.entries = append(l.entries[:from], l.entries[from+1:]...)
	l.entries = append(l.entries[:to], append([]Entry{e}, l.entries[to:]...)...)
	return true
}

// Settle records the final location of an entry and normalizes, so a
// location already held by an earlier entry collapses into it. It reports
// false when the entry is gone.
func (l *List) Settle(id, location string, metadata map[string]string) bool {
	i := l.Index(id)
	if i < 0 || location == "" {
		return false
	}
	e := &l.entries[i]
	e.Location = location
	e.File = nil
	e.Err = nil
	if metadata != nil {
		e.Metadata = metadata
	}
	l.Normalize()
	return true
}

// Fail marks an entry as failed. It reports false when the entry is gone or
// already settled.
func (l *List) Fail(id string, err error) bool {
	i := l.Index(id)
	if i < 0 || l.entries[i].Location != "" {
		return false
	}
	l.entries[i].Err = err
	return true
}

// Remove drops the entry with the given id.
func (l *List) Remove(id string) bool {
	i := l.Index(id)
	if i < 0 {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return true
}

// RemoveLocation drops every entry settled at location.
func (l *List) RemoveLocation(location string) bool {
	kept := l.entries[:0]
	removed := false
	for _, e := range l.entries {
		if e.Location != "" && e.Location == location {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	clearTail(l.entries, len(kept))
	l.entries = kept
	return removed
}

// Clear empties the list.
func (l *List) Clear() { l.entries = nil }

// Normalize drops every entry whose location, or whose file, already appeared
// at an earlier position. Relative order is preserved.
func (l *List) Normalize() {
	firstLocation := map[string]int{}
	firstFile := map[any]int{}
	for i, e := range l.entries {
		if e.Location != "" {
			if _, ok := firstLocation[e.Location]; !ok {
				firstLocation[e.Location] = i
			}
		}
		if e.File != nil {
			if _, ok := firstFile[fileIdentity(e)]; !ok {
				firstFile[fileIdentity(e)] = i
			}
		}
	}
	kept := l.entries[:0]
	for i, e := range l.entries {
		if e.Location != "" && firstLocation[e.Location] != i {
			continue
		}
		if e.File != nil && firstFile[fileIdentity(e)] != i {
			continue
		}
		kept = append(kept, e)
	}
	clearTail(l.entries, len(kept))
	l.entries = kept
}

// entryKey stands in for a file that cannot be used as a map key.
type entryKey struct{ id string }

// fileIdentity is the dedup key of a pending entry: the file itself, or the
// entry id when the file type is not comparable.
func fileIdentity(e Entry) any {
	if reflect.TypeOf(e.File).Comparable() {
		return e.File
	}
	return entryKey{e.ID}
}

// Locations returns the settled locations in list order.
func (l *List) Locations() []string {
	out := []string{}
	for _, e := range l.entries {
		if e.Location != "" {
			out = append(out, e.Location)
		}
	}
	return out
}

// clearTail zeroes the entries past n so dropped files can be collected.
func clearTail(entries []Entry, n int) {
	for i := n; i < len(entries); i++ {
		entries[i] = Entry{}
	}
}
