package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/nowplaying-dl"
	"github.com/alanbriolat/nowplaying-dl/internal/session"
	"github.com/alanbriolat/nowplaying-dl/page/snapshot"
)

func newTestServer(t *testing.T, html string) (*Server, *httptest.Server) {
	audio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	t.Cleanup(audio.Close)

	html = strings.ReplaceAll(html, "AUDIO", audio.URL)
	page := snapshot.NewProvider(audio.URL, func(ctx context.Context) (*snapshot.Snapshot, error) {
		return snapshot.FromHTML(strings.NewReader(html), audio.URL, nowplaying_dl.DefaultSelectors)
	})
	registry := prometheus.NewRegistry()
	s, err := session.New(session.Config{
		Page:       page,
		TargetDir:  t.TempDir(),
		Registerer: registry,
		HTTPClient: audio.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s, registry), audio
}

const playingHTML = `<div class="player-bar"><span class="song-title">星空</span><span class="artist">未知艺术家</span></div>
<audio src="AUDIO/stars.mp3"></audio>`

func do(srv http.Handler, method string, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestDownloadAndHistory(t *testing.T) {
	assert := assert_.New(t)
	srv, _ := newTestServer(t, playingHTML)

	rec := do(srv, http.MethodGet, "/filename")
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"fileName": "星空.mp3"}`, rec.Body.String())

	rec = do(srv, http.MethodPost, "/download")
	assert.Equal(http.StatusOK, rec.Code)
	var resp outcomeResponse
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(session.OutcomeSuccess, resp.Outcome)
	assert.Equal("星空.mp3", resp.FileName)
	assert.Equal("fetch", resp.Strategy)

	rec = do(srv, http.MethodGet, "/history")
	assert.Equal(http.StatusOK, rec.Code)
	var records []nowplaying_dl.DownloadRecord
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &records))
	if assert.Len(records, 1) {
		assert.Equal("星空.mp3", records[0].FileName)
	}

	rec = do(srv, http.MethodGet, "/history/1")
	assert.Equal(http.StatusOK, rec.Code)
	rec = do(srv, http.MethodGet, "/history/2")
	assert.Equal(http.StatusNotFound, rec.Code)
	rec = do(srv, http.MethodGet, "/history/x")
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodDelete, "/history")
	assert.Equal(http.StatusNoContent, rec.Code)
	rec = do(srv, http.MethodGet, "/history")
	assert.JSONEq(`[]`, rec.Body.String())

	rec = do(srv, http.MethodGet, "/metrics")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), "nowplaying_downloads_total")
	assert.Contains(rec.Body.String(), `outcome="success"`)
}

func TestDownloadFailures(t *testing.T) {
	assert := assert_.New(t)

	srv, _ := newTestServer(t, `<p>nothing playing</p>`)
	rec := do(srv, http.MethodPost, "/download")
	assert.Equal(http.StatusUnprocessableEntity, rec.Code)
	var resp outcomeResponse
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(session.OutcomeFailure, resp.Outcome)
	assert.Equal(session.ReasonNoTrack, resp.Message)

	rec = do(srv, http.MethodGet, "/track")
	assert.Equal(http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(rec.Body.String(), "no active track")
}

func TestTrackAndCancel(t *testing.T) {
	assert := assert_.New(t)
	srv, audio := newTestServer(t, playingHTML)

	rec := do(srv, http.MethodGet, "/track")
	assert.Equal(http.StatusOK, rec.Code)
	var d nowplaying_dl.TrackDescriptor
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal("星空", d.Title)
	assert.Equal(audio.URL+"/stars.mp3", d.SourceURL)

	rec = do(srv, http.MethodPost, "/cancel")
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"cancelled": false}`, rec.Body.String())
}

func TestCrossOrigin(t *testing.T) {
	assert := assert_.New(t)
	srv, _ := newTestServer(t, playingHTML)
	req := httptest.NewRequest(http.MethodOptions, "/download", nil)
	req.Header.Set("Origin", "https://music.example.com")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(http.StatusNoContent, rec.Code)
	assert.Equal("https://music.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
