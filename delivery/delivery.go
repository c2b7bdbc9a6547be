package delivery

import (
	"context"
	"net/http"

	"github.com/alanbriolat/nowplaying-dl"
)

// Names of the delivery strategies, in the order they are tried.
const (
	StrategyFetch = "fetch"
	StrategyLink  = "link"
)

// A Request describes one track to be saved to disk.
type Request struct {
	URL      string
	FileName string
	// Origin of the host page, sent as Referer/Origin by the fetch strategy.
	Origin string
	// Cookies are the page's ambient credentials for URL, if known.
	Cookies []*http.Cookie
	// Progress is called with downloaded and expected byte counts.
	Progress func(downloaded int, expected int)
}

// Strategies returns the fetch-then-link delivery list. Each strategy returns the path of the saved file. If observe is
// not nil it is called after every attempt.
func Strategies(fetcher *Fetcher, navigator nowplaying_dl.Navigator, observe func(strategy string, err error)) *nowplaying_dl.StrategyList[*Request, string] {
	l := &nowplaying_dl.StrategyList[*Request, string]{}
	l.MustCreatePriority(StrategyFetch, nowplaying_dl.Observed(StrategyFetch, fetcher.Fetch, observe), nowplaying_dl.PriorityHighest)
	l.MustCreatePriority(StrategyLink, nowplaying_dl.Observed(StrategyLink, Link(navigator), observe), nowplaying_dl.PriorityLowest)
	return l
}

// Link adapts a Navigator to a delivery strategy.
func Link(navigator nowplaying_dl.Navigator) nowplaying_dl.StrategyFunc[*Request, string] {
	return func(ctx context.Context, req *Request) (string, error) {
		return navigator.Navigate(ctx, req.URL, req.FileName)
	}
}
