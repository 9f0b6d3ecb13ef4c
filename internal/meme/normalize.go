package meme

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Format is an image format an editor can export to.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
	FormatGIF  Format = "gif"
	FormatSVG  Format = "svg"
)

// Formats lists every known export format.
var Formats = []Format{FormatPNG, FormatJPEG, FormatWebP, FormatGIF, FormatSVG}

// ParseFormat normalizes s into a known Format. "jpg" is accepted as jpeg.
func ParseFormat(s string) (Format, error) {
	s = Normalize(s)
	s = strings.TrimPrefix(s, ".")
	if s == "jpg" {
		s = string(FormatJPEG)
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases and collapses internal whitespace.
// Used for name matching, never for stored names.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// DisplayName returns the meme name, or a placeholder for unsaved memes.
func DisplayName(m *Meme) string {
	if m == nil || strings.TrimSpace(m.Name) == "" {
		return "Untitled meme"
	}
	return m.Name
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// ParseKind normalizes s into a NotificationKind. Empty means info.
func ParseKind(s string) (NotificationKind, error) {
	switch k := NotificationKind(Normalize(s)); k {
	case "":
		return KindInfo, nil
	case KindInfo, KindSuccess, KindWarning, KindError:
		return k, nil
	default:
		return "", fmt.Errorf("unknown notification kind %q", s)
	}
}
