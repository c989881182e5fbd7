package announce

import (
	"strconv"
	"strings"
	"unicode"
)

type Locale string

const (
	LocaleID Locale = "id"
	LocaleEN Locale = "en"
)

// ParseLocale falls back to Indonesian for anything it does not know.
func ParseLocale(value string) Locale {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "en", "en-us", "en-gb", "english":
		return LocaleEN
	default:
		return LocaleID
	}
}

type vocabulary struct {
	intro   string
	counter string
	digits  [10]string
	number  func(int) string
}

var vocabularies = map[Locale]vocabulary{
	LocaleID: {
		intro:   "Nomor antrian",
		counter: "silakan menuju loket",
		digits:  [10]string{"nol", "satu", "dua", "tiga", "empat", "lima", "enam", "tujuh", "delapan", "sembilan"},
		number:  indonesianNumber,
	},
	LocaleEN: {
		intro:   "Queue number",
		counter: "please proceed to counter",
		digits:  [10]string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"},
		number:  englishNumber,
	},
}

// Phrase renders the spoken text for a job. Letters of the code are read one
// by one, digits one by one, and the counter as a whole number, e.g.
// "Nomor antrian A, nol, nol, tujuh, silakan menuju loket dua, Poli Umum".
func Phrase(job Job, locale Locale) string {
	vocab, ok := vocabularies[locale]
	if !ok {
		vocab = vocabularies[LocaleID]
	}

	parts := []string{vocab.intro + " " + strings.Join(spellCode(job.QueueCode, vocab), ", ")}
	if job.CounterNumber != nil && *job.CounterNumber > 0 {
		parts = append(parts, vocab.counter+" "+vocab.number(*job.CounterNumber))
	}
	if name := strings.TrimSpace(job.DepartmentName); name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

func spellCode(code string, vocab vocabulary) []string {
	var tokens []string
	for _, r := range strings.ToUpper(code) {
		switch {
		case r >= '0' && r <= '9':
			tokens = append(tokens, vocab.digits[r-'0'])
		case unicode.IsLetter(r):
			tokens = append(tokens, string(r))
		}
	}
	return tokens
}

var idOnes = [...]string{"", "satu", "dua", "tiga", "empat", "lima", "enam", "tujuh", "delapan", "sembilan"}

func indonesianNumber(n int) string {
	switch {
	case n < 0 || n >= 10000:
		return strconv.Itoa(n)
	case n == 0:
		return "nol"
	}
	var words []string
	if thousands := n / 1000; thousands > 0 {
		if thousands == 1 {
			words = append(words, "seribu")
		} else {
			words = append(words, idOnes[thousands], "ribu")
		}
		n %= 1000
	}
	if hundreds := n / 100; hundreds > 0 {
		if hundreds == 1 {
			words = append(words, "seratus")
		} else {
			words = append(words, idOnes[hundreds], "ratus")
		}
		n %= 100
	}
	switch {
	case n == 10:
		words = append(words, "sepuluh")
	case n == 11:
		words = append(words, "sebelas")
	case n > 11 && n < 20:
		words = append(words, idOnes[n-10], "belas")
	case n >= 20:
		words = append(words, idOnes[n/10], "puluh")
		if n%10 > 0 {
			words = append(words, idOnes[n%10])
		}
	case n > 0:
		words = append(words, idOnes[n])
	}
	return strings.Join(words, " ")
}

var (
	enOnes = [...]string{"", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen", "eighteen", "nineteen"}
	enTens = [...]string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}
)

func englishNumber(n int) string {
	switch {
	case n < 0 || n >= 10000:
		return strconv.Itoa(n)
	case n == 0:
		return "zero"
	}
	var words []string
	if thousands := n / 1000; thousands > 0 {
		words = append(words, enOnes[thousands], "thousand")
		n %= 1000
	}
	if hundreds := n / 100; hundreds > 0 {
		words = append(words, enOnes[hundreds], "hundred")
		n %= 100
	}
	switch {
	case n >= 20:
		word := enTens[n/10]
		if n%10 > 0 {
			word += "-" + enOnes[n%10]
		}
		words = append(words, word)
	case n > 0:
		words = append(words, enOnes[n])
	}
	return strings.Join(words, " ")
}
