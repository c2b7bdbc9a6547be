package session

import (
	"fmt"

	"github.com/alanbriolat/nowplaying-dl"
)

// Level is the notification style a UI should use for an Event.
type Level string

const (
	LevelDownloading Level = "downloading"
	LevelSuccess     Level = "success"
	LevelError       Level = "error"
	LevelWarning     Level = "warning"
)

type Event interface {
	Level() Level
	// Message is the user-facing notification text.
	Message() string
}

// DownloadStarted is sent as soon as the guard is acquired.
type DownloadStarted struct{}

// DownloadRejected is sent when a download is requested while another is in flight.
type DownloadRejected struct{}

// DownloadResolved is sent once the track and its filename are known, before any network I/O.
type DownloadResolved struct {
	Track    nowplaying_dl.TrackDescriptor
	FileName string
}

// DownloadProgress is sent periodically while the primary strategy streams the body. Expected is 0 if unknown.
type DownloadProgress struct {
	FileName   string
	Downloaded int
	Expected   int
}

type DownloadSucceeded struct {
	Record   nowplaying_dl.DownloadRecord
	Path     string
	Strategy string
}

type DownloadFailed struct {
	Err    error
	Reason string
}

// DownloadCancelled is sent when an in-flight download is abandoned, e.g. because the page was unloaded.
type DownloadCancelled struct{}

type HistoryCleared struct{}

func (DownloadStarted) Level() Level   { return LevelDownloading }
func (DownloadStarted) Message() string { return "开始下载" }

func (DownloadRejected) Level() Level   { return LevelDownloading }
func (DownloadRejected) Message() string { return "当前正在下载中，请稍候..." }

func (e DownloadResolved) Level() Level    { return LevelDownloading }
func (e DownloadResolved) Message() string { return "开始下载: " + e.FileName }

func (e DownloadProgress) Level() Level { return LevelDownloading }
func (e DownloadProgress) Message() string {
	if e.Expected > 0 {
		return fmt.Sprintf("%s: %d%%", e.FileName, e.Downloaded*100/e.Expected)
	}
	return fmt.Sprintf("%s: %d bytes", e.FileName, e.Downloaded)
}

func (e DownloadSucceeded) Level() Level    { return LevelSuccess }
func (e DownloadSucceeded) Message() string { return "下载完成: " + e.Record.FileName }

func (e DownloadFailed) Level() Level    { return LevelError }
func (e DownloadFailed) Message() string { return "下载失败: " + e.Reason }

func (DownloadCancelled) Level() Level   { return LevelWarning }
func (DownloadCancelled) Message() string { return ReasonCancelled }

func (HistoryCleared) Level() Level   { return LevelSuccess }
func (HistoryCleared) Message() string { return "已清除所有下载历史" }

// IsNotification returns false for events that only carry progress.
func IsNotification(e Event) bool {
	_, progress := e.(DownloadProgress)
	return !progress
}
