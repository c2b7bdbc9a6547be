package nowplaying_dl

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/alanbriolat/nowplaying-dl/generic"
	"github.com/alanbriolat/nowplaying-dl/util"
)

// MaxBaseLength limits the file name before the extension, in characters.
const MaxBaseLength = 200

// MaxFileNameBytes is the common filesystem limit on a single path component.
const MaxFileNameBytes = 255

// DefaultExtension is used when nothing in the URL identifies the audio format.
const DefaultExtension = "mp3"

var audioExtensions = generic.NewSet("mp3", "m4a", "flac", "wav", "ogg", "aac")

var (
	illegalChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	reservedNames = regexp.MustCompile(`(?i)^(CON|PRN|AUX|NUL|COM[1-9]|LPT[1-9])$`)
)

// Sanitize makes a single path component safe on common filesystems. Illegal characters become "_", leading and
// trailing dots are stripped and reserved device names are replaced. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	if name == "" {
		return ""
	}
	clean := illegalChars.ReplaceAllString(name, "_")
	clean = strings.Trim(clean, ".")
	if clean == "" || reservedNames.MatchString(clean) {
		return "_"
	}
	return clean
}

// DeriveFileName maps a track to "artist - title.ext", leaving out the artist when it is empty or a placeholder.
func DeriveFileName(d TrackDescriptor) string {
	title := Sanitize(d.Title)
	if title == "" {
		title = Sanitize(DefaultTitle)
	}
	base := title
	if d.Artist != "" && !IsUnknownArtist(d.Artist) {
		if artist := Sanitize(d.Artist); artist != "" {
			base = artist + " - " + title
		}
	}
	return LimitFileName(base + "." + FileExtension(d.SourceURL))
}

// LimitFileName shortens the part of name before its extension to MaxBaseLength characters, and the whole name to
// MaxFileNameBytes bytes of UTF-8, cutting at a character boundary.
func LimitFileName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	truncated := false
	if runes := []rune(base); len(runes) > MaxBaseLength {
		base = string(runes[:MaxBaseLength])
		truncated = true
	}
	for base != "" && len(base)+len(ext) > MaxFileNameBytes {
		_, size := utf8.DecodeLastRuneInString(base)
		base = base[:len(base)-size]
		truncated = true
	}
	if !truncated {
		return name
	}
	base = strings.TrimRight(base, ". ")
	if base == "" {
		base = "_"
	}
	return base + ext
}

// FileExtension picks the audio extension for a URL: its trailing path extension if that is a known audio format,
// else a substring match, else DefaultExtension.
func FileExtension(rawURL string) string {
	if rawURL == "" {
		return DefaultExtension
	}
	if ext := util.PathExtension(rawURL); audioExtensions.Contains(ext) {
		return ext
	}
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "m4a"), strings.Contains(lower, "aac"):
		return "m4a"
	case strings.Contains(lower, "flac"):
		return "flac"
	case strings.Contains(lower, "wav"):
		return "wav"
	case strings.Contains(lower, "ogg"):
		return "ogg"
	}
	return DefaultExtension
}
