package delivery

import (
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"

	"github.com/alanbriolat/nowplaying-dl"
)

// StampMP3 writes the track's title and artist into an .mp3 file's ID3 tag. Other files are left alone.
func StampMP3(path string, d nowplaying_dl.TrackDescriptor) error {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return nil
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(d.Title)
	if d.Artist != "" && !nowplaying_dl.IsUnknownArtist(d.Artist) {
		tag.SetArtist(d.Artist)
	}
	if d.SourceURL != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    tag.DefaultEncoding(),
			Language:    "eng",
			Description: "source",
			Text:        d.SourceURL,
		})
	}
	return tag.Save()
}
