package queue

import (
	"fmt"
	"time"

	"klinik/antrian/internal/models"
	"klinik/antrian/internal/store"
)

const (
	DateLayout = "2006-01-02"
	codeDigits = 3
)

// FormatCode renders a ticket code such as A-007.
func FormatCode(prefix string, sequence int) string {
	return fmt.Sprintf("%s-%0*d", prefix, codeDigits, sequence)
}

// Allocate picks the next sequence and code for a department. lastIssued is
// the highest sequence already handed out on the day, 0 for a fresh day.
// daily_quota caps the sequence number itself.
func Allocate(setting models.QueueSetting, lastIssued int) (int, string, error) {
	if !setting.IsActive {
		return 0, "", store.ErrDepartmentInactive
	}
	sequence := lastIssued + 1
	if sequence < setting.StartNumber {
		sequence = setting.StartNumber
	}
	if sequence > setting.DailyQuota {
		return 0, "", store.ErrQuotaExceeded
	}
	return sequence, FormatCode(setting.Prefix, sequence), nil
}

// DayOf returns the calendar date of t in loc.
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

func validDate(value string) bool {
	_, err := time.Parse(DateLayout, value)
	return err == nil
}
