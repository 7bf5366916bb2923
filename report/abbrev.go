package report

import (
	"strings"
	"unicode/utf8"
)

const labelEllipsis = "…"

// labelFont is the font row labels are measured and drawn with when fitted.
var labelFont = Font{Style: FontRegular, Size: 8}

var knownAbbreviations = map[string]string{
	"pengeluaran konsumsi rumah tangga":                                 "PKRT",
	"pengeluaran konsumsi lembaga nonprofit yang melayani rumah tangga": "PKLNYMRT",
	"produk domestik regional bruto":                                    "PDRB",
	"tingkat partisipasi angkatan kerja":                                "TPAK",
	"tingkat pengangguran terbuka":                                      "TPT",
}

var abbreviationStopWords = map[string]struct{}{
	"dan": {}, "yang": {}, "di": {}, "ke": {}, "dari": {}, "untuk": {}, "pada": {},
	"dengan": {}, "oleh": {}, "kepada": {}, "para": {}, "antar": {}, "yg": {},
}

// Abbreviate returns the dictionary abbreviation of label, or the uppercased
// initials of its non-stop-words. Labels with no usable words come back trimmed.
func Abbreviate(label string) string {
	norm := strings.TrimSpace(label)
	if abbr, ok := knownAbbreviations[strings.ToLower(norm)]; ok {
		return abbr
	}

	var b strings.Builder
	for _, word := range strings.Fields(norm) {
		if _, stop := abbreviationStopWords[strings.ToLower(word)]; stop {
			continue
		}
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(r)
	}
	initials := strings.ToUpper(b.String())
	if initials == "" {
		return norm
	}
	return initials
}

// FitLabel returns the longest form of label that fits width when measured at
// the label font: "label (ABBR)", then "ABBR", then ABBR cut down with an ellipsis.
func FitLabel(m Measurer, label string, width float64) string {
	if strings.TrimSpace(label) == "" {
		return ""
	}
	maxWidth := width - 1
	abbr := Abbreviate(label)

	full := label + " (" + abbr + ")"
	if m.TextWidth(full, labelFont) <= maxWidth {
		return full
	}
	if m.TextWidth(abbr, labelFont) <= maxWidth {
		return abbr
	}

	runes := []rune(abbr)
	for len(runes) > 1 && m.TextWidth(string(runes)+labelEllipsis, labelFont) > maxWidth {
		runes = runes[:len(runes)-1]
	}
	fitted := string(runes)
	if !strings.HasSuffix(fitted, labelEllipsis) {
		fitted += labelEllipsis
	}
	return fitted
}
