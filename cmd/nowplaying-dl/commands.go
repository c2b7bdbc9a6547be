package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/atotto/clipboard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/nowplaying-dl"
	"github.com/alanbriolat/nowplaying-dl/generic"
	"github.com/alanbriolat/nowplaying-dl/internal/api"
	"github.com/alanbriolat/nowplaying-dl/internal/session"
)

var copyFlag = &cli.BoolFlag{
	Name:  "copy",
	Usage: "also copy the result to the clipboard",
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "download the current track (the default command)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "target",
				Usage:   "save downloaded track to `DIR`",
				EnvVars: []string{"NOWPLAYING_DOWNLOAD_DIR"},
			},
			&cli.BoolFlag{
				Name:  "tag",
				Usage: "write ID3 title/artist tags into .mp3 files",
			},
		},
		Action: runDownload,
	}
}

func runDownload(c *cli.Context) error {
	if target := c.String("target"); target != "" {
		appConfig.Download.Dir = target
	}
	if c.Bool("tag") {
		appConfig.Download.TagMP3 = true
	}
	if err := os.MkdirAll(appConfig.Download.Dir, 0755); err != nil {
		return err
	}
	return withSession(c, nil, func(s *session.Session) error {
		logger := zap.S()
		sub, err := s.Subscribe()
		if err != nil {
			return err
		}
		var bar *progressbar.ProgressBar
		done := make(chan struct{})
		go func() {
			defer close(done)
			for e := range sub.Receive() {
				switch e := e.(type) {
				case session.DownloadProgress:
					if bar == nil {
						bar = progressbar.DefaultBytes(-1, e.FileName)
					}
					if e.Expected > 0 && bar.GetMax() != e.Expected {
						bar.ChangeMax(e.Expected)
					}
					generic.Unwrap_(bar.Set(e.Downloaded))
				case session.DownloadResolved:
					logger.Info(e.Message())
				}
			}
		}()

		o := s.Download(c.Context)
		s.FlushEvents()
		sub.Close()
		<-done
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
		if !o.OK() {
			return errors.New(o.Message)
		}
		logger.Infow(o.Message, "path", o.Path, "strategy", o.Strategy)
		return nil
	})
}

func fileNameCommand() *cli.Command {
	return &cli.Command{
		Name:  "filename",
		Usage: "print the file name the current track would be saved as",
		Action: func(c *cli.Context) error {
			return withSession(c, nil, func(s *session.Session) error {
				name, err := s.FileName(c.Context)
				if err != nil {
					return err
				}
				fmt.Println(name)
				return nil
			})
		},
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "print the current track as \"artist - title\"",
		Flags: []cli.Flag{copyFlag},
		Action: func(c *cli.Context) error {
			return withSession(c, nil, func(s *session.Session) error {
				d, err := s.Track(c.Context)
				if err != nil {
					return errors.New(session.ReasonNoTrack)
				}
				return output(c, d.SongInfo(), "已复制歌曲信息到剪贴板")
			})
		},
	}
}

func linkCommand() *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "print the resolved audio URL of the current track",
		Flags: []cli.Flag{copyFlag},
		Action: func(c *cli.Context) error {
			return withSession(c, nil, func(s *session.Session) error {
				d, err := s.Track(c.Context)
				if err != nil {
					return errors.New(session.ReasonNoTrack)
				}
				if !d.HasSource() {
					return errors.New(session.ReasonNoSource)
				}
				return output(c, d.SourceURL, "已复制下载链接到剪贴板")
			})
		},
	}
}

// output prints text, and copies it to the clipboard if --copy was given.
func output(c *cli.Context, text string, copied string) error {
	fmt.Println(text)
	if !c.Bool("copy") {
		return nil
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	zap.S().Info(copied)
	return nil
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show or manage the download history",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list downloads, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print as JSON"},
				},
				Action: func(c *cli.Context) error {
					return withHistory(c, func(r *session.Recorder) error {
						records, err := r.List()
						if err != nil {
							return err
						}
						if c.Bool("json") {
							if records == nil {
								records = []nowplaying_dl.DownloadRecord{}
							}
							enc := json.NewEncoder(os.Stdout)
							enc.SetIndent("", "  ")
							return enc.Encode(records)
						}
						if len(records) == 0 {
							fmt.Println("暂无下载历史")
							return nil
						}
						for i, record := range records {
							fmt.Printf("%3d  %s  %s\n     %s\n", i+1, record.DownloadedAt.Local().Format("2006-01-02 15:04"), record.SongInfo(), record.FileName)
						}
						return nil
					})
				},
			},
			{
				Name:  "clear",
				Usage: "delete all history",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "confirm deletion"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("yes") {
						return errors.New("refusing to clear history without --yes")
					}
					return withHistory(c, func(r *session.Recorder) error {
						if err := r.Clear(); err != nil {
							return err
						}
						zap.S().Info(session.HistoryCleared{}.Message())
						return nil
					})
				},
			},
			{
				Name:      "copy",
				Usage:     "copy \"artist - title\" of entry N to the clipboard",
				ArgsUsage: "N",
				Action: func(c *cli.Context) error {
					n, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return fmt.Errorf("invalid entry number %q", c.Args().First())
					}
					return withHistory(c, func(r *session.Recorder) error {
						record, err := r.Get(n)
						if err != nil {
							return err
						}
						if err := clipboard.WriteAll(record.SongInfo()); err != nil {
							return fmt.Errorf("failed to copy to clipboard: %w", err)
						}
						fmt.Println(record.SongInfo())
						return nil
					})
				},
			},
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the HTTP API for an in-page download button",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "listen on `ADDR`",
				EnvVars: []string{"NOWPLAYING_LISTEN"},
			},
		},
		Action: func(c *cli.Context) error {
			addr := appConfig.Server.Listen
			if v := c.String("listen"); v != "" {
				addr = v
			}
			if err := os.MkdirAll(appConfig.Download.Dir, 0755); err != nil {
				return err
			}
			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector())
			return withSession(c, registry, func(s *session.Session) error {
				sub, err := s.SubscribeNotifications()
				if err != nil {
					return err
				}
				defer sub.Close()
				go logEvents(sub.Receive())
				return api.New(s, registry).ListenAndServe(c.Context, addr)
			})
		},
	}
}

func logEvents(events <-chan session.Event) {
	logger := zap.S().Named("events")
	for e := range events {
		switch e.Level() {
		case session.LevelError:
			logger.Error(e.Message())
		case session.LevelWarning:
			logger.Warn(e.Message())
		default:
			logger.Info(e.Message())
		}
	}
}
