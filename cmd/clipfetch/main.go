package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/clipfetch/clipfetch"
	"github.com/clipfetch/clipfetch/async"
	"github.com/clipfetch/clipfetch/httpx"
	_ "github.com/clipfetch/clipfetch/provider/all"
	"github.com/clipfetch/clipfetch/store"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = clipfetch.WithLogger(ctx, logger)

	app := &cli.App{
		Name:  "clipfetch",
		Usage: "resolve and download videos from supported platforms",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Value: ".",
				Usage: "save downloaded video to `DIR`",
			},
			&cli.StringFlag{
				Name:  "history",
				Value: "",
				Usage: "record downloads in sqlite database at `PATH`",
			},
		},
		Action: func(c *cli.Context) error {
			var history *store.Store
			if path := c.String("history"); path != "" {
				var err error
				if history, err = store.New(path); err != nil {
					return fmt.Errorf("failed to open history database: %w", err)
				}
				defer history.Close()
				if err = history.Migrate(); err != nil {
					return fmt.Errorf("failed to migrate history database: %w", err)
				}
			}
			target := c.String("target")
			for _, source := range c.Args().Slice() {
				if err := download(ctx, source, target, history); err != nil {
					return err
				}
			}
			return nil
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		logger.Error(ctx.Err().Error())
		stop()
	}
}

func download(ctx context.Context, source string, target string, history *store.Store) error {
	logger := clipfetch.Logger(ctx).Sugar()
	logger.Infof("Downloading from %s into %s", source, target)

	record := store.NewDownload(source)
	recordFailure := func(err error) {
		if history == nil {
			return
		}
		record.Status = store.StatusFailed
		record.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		_ = history.Update(record)
	}
	if history != nil {
		if err := history.Insert(record); err != nil {
			return fmt.Errorf("failed to record download: %w", err)
		}
	}

	match, err := clipfetch.DefaultProviderRegistry.Match(source)
	if err != nil {
		recordFailure(err)
		return fmt.Errorf("match failed: %w", err)
	}

	logger.Info("Resolving video...")
	resolved, err := match.Source.Recon(ctx)
	if err != nil {
		recordFailure(err)
		return fmt.Errorf("recon failed: %w", err)
	}
	info := resolved.Info()
	logger.Infof("Resolved %s", info)

	if history != nil {
		record.VideoID = info.ID
		record.Title = info.Title
		record.Platform = info.Platform.String()
		record.DownloadURL = info.DownloadURL
		record.Status = store.StatusDownloading
		if err := history.Update(record); err != nil {
			return fmt.Errorf("failed to update download record: %w", err)
		}
	}

	logger.Info("Starting download...")
	bar := progressbar.DefaultBytes(1, "downloading")
	downloadBuilder := clipfetch.NewDownloadBuilder()
	downloadBuilder.WithContext(ctx)
	downloadBuilder.WithClient(httpx.New(httpx.WithTimeout(0)))
	downloadBuilder.WithProgressCallback(func(downloaded int, expected int) {
		if bar.GetMax() != expected {
			bar.ChangeMax(expected)
		}
		lo.Must0(bar.Set(downloaded))
		record.Progress = progressPercent(downloaded, expected)
		record.DownloadedSize = int64(downloaded)
		record.FileSize = int64(expected)
	})
	downloadBuilder.WithTargetPrefix(strings.TrimRight(target, "/") + "/")
	dl := lo.Must(downloadBuilder.Build())
	defer dl.Close()

	if err = resolved.Download(dl); err != nil {
		recordFailure(err)
		return fmt.Errorf("download failed: %w", err)
	}

	if history != nil {
		record.Status = store.StatusCompleted
		record.Progress = 100
		record.CompletedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
		if err := history.Update(record); err != nil {
			return fmt.Errorf("failed to update download record: %w", err)
		}
	}
	logger.Info("Download complete!")

	return nil
}

func progressPercent(downloaded int, expected int) int {
	if expected <= 0 {
		return 0
	}
	return downloaded * 100 / expected
}
