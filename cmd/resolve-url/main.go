package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/clipfetch/clipfetch"
	_ "github.com/clipfetch/clipfetch/provider/all"
)

// resolve-url resolves a video URL without downloading anything, printing the
// resolved info as JSON on stdout. Useful for piping into other tools.
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
		Name:      "resolve-url",
		Usage:     "resolve a video URL to its downloadable media URL",
		ArgsUsage: "URL...",
		Action: func(c *cli.Context) error {
			for _, source := range c.Args().Slice() {
				if err := resolve(ctx, source); err != nil {
					return err
				}
			}
			return nil
		},
		HideHelpCommand: true,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Fatal(err.Error())
	}
}

func resolve(ctx context.Context, source string) error {
	match, err := clipfetch.DefaultProviderRegistry.Match(source)
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}
	resolved, err := match.Source.Recon(ctx)
	if err != nil {
		return fmt.Errorf("recon failed: %w", err)
	}
	info := resolved.Info()
	out, err := json.Marshal(map[string]string{
		"id":           info.ID,
		"title":        info.Title,
		"platform":     info.Platform.String(),
		"download_url": info.DownloadURL,
	})
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
