package queue

import (
	"testing"
	"time"

	"klinik/antrian/internal/models"
	"klinik/antrian/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCode(t *testing.T) {
	assert.Equal(t, "A-001", FormatCode("A", 1))
	assert.Equal(t, "GG-042", FormatCode("GG", 42))
	assert.Equal(t, "B-1000", FormatCode("B", 1000))
}

func TestAllocate(t *testing.T) {
	setting := models.QueueSetting{DepartmentID: "umum", Prefix: "A", StartNumber: 1, DailyQuota: 3, IsActive: true}

	tests := []struct {
		name     string
		setting  models.QueueSetting
		last     int
		wantSeq  int
		wantCode string
		wantErr  error
	}{
		{name: "fresh day", setting: setting, last: 0, wantSeq: 1, wantCode: "A-001"},
		{name: "next in line", setting: setting, last: 2, wantSeq: 3, wantCode: "A-003"},
		{name: "quota reached", setting: setting, last: 3, wantErr: store.ErrQuotaExceeded},
		{
			name:     "start number above last",
			setting:  models.QueueSetting{Prefix: "B", StartNumber: 100, DailyQuota: 150, IsActive: true},
			last:     0,
			wantSeq:  100,
			wantCode: "B-100",
		},
		{
			name:    "inactive",
			setting: models.QueueSetting{Prefix: "C", StartNumber: 1, DailyQuota: 10},
			wantErr: store.ErrDepartmentInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, code, err := Allocate(tt.setting, tt.last)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSeq, seq)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestDayOf(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	instant := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-10-16", DayOf(instant, wib))
	assert.Equal(t, "2026-10-15", DayOf(instant, nil))
}
