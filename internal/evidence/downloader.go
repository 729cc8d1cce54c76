// Package evidence collects and stores the screenshot backing a claim. The
// member's original message is only deleted by the caller after Download has
// succeeded, so a failed fetch never destroys evidence.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const MaxFileSize = 5 << 20 // 5 MB

const botUserAgent = "FazendaBot/1.0 (+https://github.com/fazendarp/fazendabot)"

var (
	ErrNotAnImage = errors.New("attachment is not an image")
	ErrTooLarge   = errors.New("attachment exceeds the size limit")
)

type Downloader struct {
	client *http.Client
	log    *slog.Logger
}

func NewDownloader(log *slog.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

// Validate rejects attachments that are not images or are over 5 MB. The
// member's message is left in place on rejection.
func Validate(att *discordgo.MessageAttachment) error {
	if !strings.HasPrefix(att.ContentType, "image/") {
		return ErrNotAnImage
	}
	if att.Size > MaxFileSize {
		return ErrTooLarge
	}
	return nil
}

// Download fetches the attachment into destDir, trying each delivery
// strategy in order and stopping at the first success. Returns the saved
// file's path.
func (d *Downloader) Download(ctx context.Context, att *discordgo.MessageAttachment, destDir, baseName string) (string, error) {
	if err := Validate(att); err != nil {
		return "", err
	}

	dest := filepath.Join(destDir, baseName+extFor(att))

	strategies := []struct {
		name string
		run  func(context.Context) error
	}{
		{"direct", func(ctx context.Context) error {
			return d.fetch(ctx, att.URL, dest, map[string]string{"User-Agent": botUserAgent})
		}},
		{"browser-headers", func(ctx context.Context) error {
			return d.fetch(ctx, att.URL, dest, map[string]string{
				"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
				"Accept":     "image/avif,image/webp,image/png,image/*,*/*;q=0.8",
				"Referer":    "https://discord.com/",
			})
		}},
		{"alternate-cdn", func(ctx context.Context) error {
			return d.fetch(ctx, alternateURL(att.URL), dest, map[string]string{"User-Agent": botUserAgent})
		}},
	}

	var lastErr error
	for _, strat := range strategies {
		if err := strat.run(ctx); err != nil {
			lastErr = err
			if d.log != nil {
				d.log.Warn("evidence download strategy failed", "strategy", strat.name, "error", err)
			}
			continue
		}
		return dest, nil
	}
	return "", fmt.Errorf("all download strategies failed: %w", lastErr)
}

func (d *Downloader) fetch(ctx context.Context, url, dest string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, io.LimitReader(resp.Body, MaxFileSize+1)); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return err
	}

	if fi, err := os.Stat(dest); err == nil && fi.Size() > MaxFileSize {
		os.Remove(dest)
		return ErrTooLarge
	}
	return nil
}

// alternateURL rewrites the attachment URL to the media proxy host, which
// sometimes serves files the primary CDN refuses.
func alternateURL(url string) string {
	return strings.Replace(url, "cdn.discordapp.com", "media.discordapp.net", 1)
}

func extFor(att *discordgo.MessageAttachment) string {
	if ext := filepath.Ext(att.Filename); ext != "" {
		return ext
	}
	switch att.ContentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
