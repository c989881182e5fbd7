package queue

import (
	"sync"
	"time"

	"klinik/antrian/internal/models"
)

const defaultRecallLogSize = 32

// recallLog is a bounded ring of recent recalls. Seq is monotonic for the life
// of the process so display clients can tell new recalls from ones they
// already played.
type recallLog struct {
	mu      sync.Mutex
	size    int
	seq     int64
	notices []models.RecallNotice
}

func newRecallLog(size int) *recallLog {
	if size <= 0 {
		size = defaultRecallLogSize
	}
	return &recallLog{size: size}
}

func (l *recallLog) add(entry models.QueueEntry, at time.Time) models.RecallNotice {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	notice := models.RecallNotice{Seq: l.seq, Entry: entry, RecalledAt: at}
	l.notices = append(l.notices, notice)
	if len(l.notices) > l.size {
		l.notices = l.notices[len(l.notices)-l.size:]
	}
	return notice
}

// list returns the recalls for a department on a date, oldest first. An empty
// departmentID matches every department.
func (l *recallLog) list(departmentID, date string) []models.RecallNotice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.RecallNotice{}
	for _, notice := range l.notices {
		if departmentID != "" && notice.Entry.DepartmentID != departmentID {
			continue
		}
		if notice.Entry.QueueDate != date {
			continue
		}
		out = append(out, notice)
	}
	return out
}
