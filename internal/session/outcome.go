package session

import (
	"github.com/alanbriolat/nowplaying-dl"
)

type OutcomeKind string

const (
	OutcomeSuccess           OutcomeKind = "success"
	OutcomeFailure           OutcomeKind = "failure"
	OutcomeAlreadyInProgress OutcomeKind = "already-in-progress"
)

// Failure reasons shown to the user.
const (
	ReasonNoTrack           = "无法获取音乐信息"
	ReasonNoSource          = "无法获取音频链接"
	ReasonAllMethodsFailed  = "所有下载方法都失败"
	ReasonAlreadyInProgress = "当前正在下载中，请稍候..."
	ReasonCancelled         = "下载已取消"
)

// An Outcome is the result of one "download current track" request.
type Outcome struct {
	Kind OutcomeKind
	// Track is set once the page was read successfully.
	Track *nowplaying_dl.TrackDescriptor
	// FileName is the derived name, Path is where the file was actually saved.
	FileName string
	Path     string
	// Strategy is the delivery strategy that succeeded.
	Strategy string
	Record   *nowplaying_dl.DownloadRecord
	Err      error
	// Message is the human-readable summary.
	Message string
}

func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

func alreadyInProgress() Outcome {
	return Outcome{
		Kind:    OutcomeAlreadyInProgress,
		Err:     nowplaying_dl.ErrAlreadyInProgress,
		Message: ReasonAlreadyInProgress,
	}
}

func failure(err error, reason string) Outcome {
	return Outcome{
		Kind:    OutcomeFailure,
		Err:     err,
		Message: reason,
	}
}
