package livesync

import (
	"sort"
	"time"

	"klinik/antrian/internal/models"
)

// Cursor remembers what the display has already announced: the entry at the
// top of the current list with its status, the newest call time seen and the
// highest recall sequence played.
type Cursor struct {
	EntryID   string
	Status    models.Status
	CalledAt  time.Time
	RecallSeq int64
	primed    bool
}

// Observe returns the entries to announce for snapshot, oldest call first,
// and advances the cursor. An entry still shown as called in a later poll is
// never returned twice. Only the very first snapshot is limited to its top
// entry; after that every call newer than the cursor is announced, even when
// nothing had been called before. Recalls are always announced once each; the
// first snapshot only primes the recall position.
func (c *Cursor) Observe(snapshot models.QueueDisplaySnapshot) []models.QueueEntry {
	var out []models.QueueEntry

	if len(snapshot.Current) > 0 {
		top := snapshot.Current[0]
		if !c.primed {
			if top.Status == models.StatusCalled {
				out = append(out, top)
			}
		} else {
			out = append(out, calledAfter(snapshot.Current, c.CalledAt)...)
		}
		c.EntryID = top.ID
		c.Status = top.Status
		if latest := latestCall(snapshot.Current); latest.After(c.CalledAt) {
			c.CalledAt = latest
		}
	} else {
		c.EntryID = ""
		c.Status = ""
	}

	maxSeq := int64(0)
	for _, recall := range snapshot.Recalls {
		if recall.Seq > maxSeq {
			maxSeq = recall.Seq
		}
	}
	if !c.primed {
		c.primed = true
		c.RecallSeq = maxSeq
		return out
	}
	if maxSeq < c.RecallSeq {
		// the backend restarted and its recall log began again
		c.RecallSeq = 0
	}
	recalls := make([]models.RecallNotice, 0, len(snapshot.Recalls))
	for _, recall := range snapshot.Recalls {
		if recall.Seq > c.RecallSeq {
			recalls = append(recalls, recall)
		}
	}
	sort.Slice(recalls, func(i, j int) bool { return recalls[i].Seq < recalls[j].Seq })
	for _, recall := range recalls {
		out = append(out, recall.Entry)
	}
	if maxSeq > c.RecallSeq {
		c.RecallSeq = maxSeq
	}
	return out
}

func calledAfter(entries []models.QueueEntry, after time.Time) []models.QueueEntry {
	var out []models.QueueEntry
	for _, entry := range entries {
		if entry.Status == models.StatusCalled && entry.CalledAt != nil && entry.CalledAt.After(after) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CalledAt.Before(*out[j].CalledAt) })
	return out
}

func latestCall(entries []models.QueueEntry) time.Time {
	var latest time.Time
	for _, entry := range entries {
		if entry.CalledAt != nil && entry.CalledAt.After(latest) {
			latest = *entry.CalledAt
		}
	}
	return latest
}
