package nowplaying_dl

import (
	"strings"
	"testing"
	"unicode/utf8"

	assert_ "github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("", Sanitize(""))
	assert.Equal("AC_DC", Sanitize("AC/DC"))
	assert.Equal("a_b_c_d_e_f_g_h_i", Sanitize(`a<b>c:d"e\f|g?h*i`))
	assert.Equal("tab_here", Sanitize("tab\there"))
	assert.Equal("del_", Sanitize("del\x7f"))
	assert.Equal("hidden", Sanitize("...hidden..."))
	assert.Equal("_", Sanitize("...."))
	assert.Equal("_", Sanitize("CON"))
	assert.Equal("_", Sanitize("lpt1"))
	assert.Equal("CONSOLE", Sanitize("CONSOLE"))
	assert.Equal("星空", Sanitize("星空"))
}

func TestSanitizeIdempotent(t *testing.T) {
	assert := assert_.New(t)
	inputs := []string{
		"",
		"....",
		"a/b/c",
		" .x. ",
		"COM3",
		"..CON..",
		"晴天 (Live)",
		"what?!*",
		"\x00\x01\x02",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(once, Sanitize(once), "input %q", in)
	}
}

func TestDeriveFileName(t *testing.T) {
	assert := assert_.New(t)

	assert.Equal("星空.mp3", DeriveFileName(TrackDescriptor{
		Title:     "星空",
		Artist:    "未知艺术家",
		SourceURL: "https://cdn.example.com/a/b.mp3",
	}))
	assert.Equal("周杰伦 - 晴天.mp3", DeriveFileName(TrackDescriptor{
		Title:     "晴天",
		Artist:    "周杰伦",
		SourceURL: "https://cdn.example.com/a/b.mp3",
	}))
	assert.Equal("Song.flac", DeriveFileName(TrackDescriptor{
		Title:     "Song",
		Artist:    "",
		SourceURL: "https://cdn.example.com/track.flac?sig=abc",
	}))
	assert.Equal("Song.mp3", DeriveFileName(TrackDescriptor{
		Title:  "Song",
		Artist: "Unknown Artist",
	}))
	assert.Equal("AC_DC - Back In Black.m4a", DeriveFileName(TrackDescriptor{
		Title:     "Back In Black",
		Artist:    "AC/DC",
		SourceURL: "https://cdn.example.com/stream?fmt=aac",
	}))
}

func TestDeriveFileNameEmptyArtistOmitsSeparator(t *testing.T) {
	assert := assert_.New(t)
	name := DeriveFileName(TrackDescriptor{Title: "Solo", Artist: ""})
	assert.Equal("Solo.mp3", name)
	assert.NotContains(name, " - ")
}

func TestDeriveFileNameTruncates(t *testing.T) {
	assert := assert_.New(t)
	title := strings.Repeat("a", 300)
	name := DeriveFileName(TrackDescriptor{Title: title, SourceURL: "https://x/y.ogg"})
	assert.True(strings.HasSuffix(name, ".ogg"))
	base := strings.TrimSuffix(name, ".ogg")
	assert.Equal(MaxBaseLength, utf8.RuneCountInString(base))

	// Trailing dots and spaces exposed by truncation are trimmed
	title = strings.Repeat("a", MaxBaseLength-2) + " .tail"
	name = DeriveFileName(TrackDescriptor{Title: title})
	assert.Equal(strings.Repeat("a", MaxBaseLength-2)+".mp3", name)
}

func TestDeriveFileNameMultibyteFitsFilesystem(t *testing.T) {
	assert := assert_.New(t)
	// 3 bytes per character in UTF-8, so the byte limit is reached long before MaxBaseLength
	name := DeriveFileName(TrackDescriptor{Title: strings.Repeat("星", 90), Artist: "周杰伦", SourceURL: "https://x/y.flac"})
	assert.True(utf8.ValidString(name))
	assert.LessOrEqual(len(name), MaxFileNameBytes)
	assert.True(strings.HasPrefix(name, "周杰伦 - 星"))
	assert.True(strings.HasSuffix(name, "星.flac"))

	name = DeriveFileName(TrackDescriptor{Title: strings.Repeat("歌", 300), SourceURL: "https://x/y.ogg"})
	assert.Equal(strings.Repeat("歌", (MaxFileNameBytes-len(".ogg"))/3)+".ogg", name)

	// Short names are untouched
	assert.Equal("星空.mp3", LimitFileName("星空.mp3"))
	assert.Equal(254, len(LimitFileName(strings.Repeat("a", 100)+strings.Repeat("é", 100)+".m4a")))
}

func TestFileExtension(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("flac", FileExtension("https://cdn/x/track.flac?sig=abc"))
	assert.Equal("aac", FileExtension("https://cdn/x/track.AAC"))
	assert.Equal("m4a", FileExtension("https://cdn/x/stream?codec=aac"))
	assert.Equal("m4a", FileExtension("https://cdn/m4a/stream"))
	assert.Equal("wav", FileExtension("https://cdn/wav/stream"))
	assert.Equal("ogg", FileExtension("https://cdn/x/stream?type=ogg"))
	assert.Equal("mp3", FileExtension("https://cdn/x/stream"))
	assert.Equal("mp3", FileExtension("https://cdn/x/file.exe"))
	assert.Equal("mp3", FileExtension(""))
}
