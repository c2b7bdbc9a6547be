package nowplaying_dl

import (
	"strings"
	"time"

	"github.com/alanbriolat/nowplaying-dl/generic"
)

// DefaultTitle stands in for a title element that exists but has no text.
const DefaultTitle = "未知歌曲"

// UnknownArtist is the player's own placeholder for a missing artist.
const UnknownArtist = "未知艺术家"

var unknownArtists = generic.NewSet(
	UnknownArtist,
	"未知歌手",
	"unknown",
	"unknown artist",
)

// IsUnknownArtist returns true for artist names that are only a placeholder.
func IsUnknownArtist(artist string) bool {
	return unknownArtists.Contains(strings.ToLower(strings.TrimSpace(artist)))
}

// A TrackDescriptor is a snapshot of the currently playing song, created fresh for every request.
type TrackDescriptor struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	// SourceURL is empty if no audio URL could be resolved.
	SourceURL  string    `json:"sourceUrl,omitempty"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

func NewTrackDescriptor(title string, artist string, sourceURL generic.Option[string], now time.Time) TrackDescriptor {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	return TrackDescriptor{
		Title:      title,
		Artist:     strings.TrimSpace(artist),
		SourceURL:  sourceURL.UnwrapOrDefault(),
		ResolvedAt: now,
	}
}

// HasSource returns true if an audio URL was resolved for the track.
func (d TrackDescriptor) HasSource() bool {
	return d.SourceURL != ""
}

// SongInfo formats the track as "artist - title", the form copied to the clipboard.
func (d TrackDescriptor) SongInfo() string {
	return d.Artist + " - " + d.Title
}

func (d TrackDescriptor) String() string {
	return d.SongInfo()
}
