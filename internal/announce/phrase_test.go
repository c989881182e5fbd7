package announce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int {
	return &v
}

func TestPhrase(t *testing.T) {
	tests := []struct {
		name   string
		job    Job
		locale Locale
		want   string
	}{
		{
			name:   "indonesian with counter and department",
			job:    Job{QueueCode: "A-007", CounterNumber: intPtr(2), DepartmentName: "Poli Umum"},
			locale: LocaleID,
			want:   "Nomor antrian A, nol, nol, tujuh, silakan menuju loket dua, Poli Umum",
		},
		{
			name:   "indonesian two letter prefix without department",
			job:    Job{QueueCode: "GG-112", CounterNumber: intPtr(11)},
			locale: LocaleID,
			want:   "Nomor antrian G, G, satu, satu, dua, silakan menuju loket sebelas",
		},
		{
			name:   "english",
			job:    Job{QueueCode: "B-040", CounterNumber: intPtr(21), DepartmentName: "Dental"},
			locale: LocaleEN,
			want:   "Queue number B, zero, four, zero, please proceed to counter twenty-one, Dental",
		},
		{
			name:   "no counter",
			job:    Job{QueueCode: "C-001"},
			locale: LocaleID,
			want:   "Nomor antrian C, nol, nol, satu",
		},
		{
			name:   "unknown locale falls back",
			job:    Job{QueueCode: "A-001"},
			locale: Locale("fr"),
			want:   "Nomor antrian A, nol, nol, satu",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Phrase(tt.job, tt.locale))
		})
	}
}

func TestIndonesianNumber(t *testing.T) {
	cases := map[int]string{
		0:    "nol",
		1:    "satu",
		10:   "sepuluh",
		11:   "sebelas",
		15:   "lima belas",
		20:   "dua puluh",
		37:   "tiga puluh tujuh",
		100:  "seratus",
		111:  "seratus sebelas",
		245:  "dua ratus empat puluh lima",
		1000: "seribu",
		2019: "dua ribu sembilan belas",
	}
	for n, want := range cases {
		assert.Equal(t, want, indonesianNumber(n), "n=%d", n)
	}
}

func TestEnglishNumber(t *testing.T) {
	cases := map[int]string{
		0:    "zero",
		7:    "seven",
		13:   "thirteen",
		40:   "forty",
		99:   "ninety-nine",
		305:  "three hundred five",
		1200: "one thousand two hundred",
	}
	for n, want := range cases {
		assert.Equal(t, want, englishNumber(n), "n=%d", n)
	}
}

func TestParseLocale(t *testing.T) {
	assert.Equal(t, LocaleEN, ParseLocale(" EN "))
	assert.Equal(t, LocaleID, ParseLocale("id"))
	assert.Equal(t, LocaleID, ParseLocale(""))
}
