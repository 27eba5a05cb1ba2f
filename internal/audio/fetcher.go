/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audio resolves track locators into locally playable files.
// Remote locators (http, https, s3) are downloaded through a
// content-addressed cache; plain paths resolve against the media root.
package audio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/polarisfm/polaris/internal/playout"
)

// Fetcher materializes locators to disk and probes clip durations.
type Fetcher struct {
	mediaRoot string
	cache     *Cache
	http      *http.Client
	s3        *s3.Client
	probeBin  string
	logger    zerolog.Logger
}

// FetcherOptions configures locator resolution. Empty S3 credentials
// defer to the SDK's default chain; S3Endpoint points the client at an
// S3-compatible store (MinIO, Ceph), usually together with path style.
type FetcherOptions struct {
	MediaRoot string
	CacheDir  string
	ProbeBin  string // ffprobe binary, empty disables duration probing

	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Endpoint        string
	S3UsePathStyle    bool
}

func NewFetcher(ctx context.Context, opts FetcherOptions, logger zerolog.Logger) (*Fetcher, error) {
	cache, err := NewCache(opts.CacheDir)
	if err != nil {
		return nil, err
	}

	f := &Fetcher{
		mediaRoot: opts.MediaRoot,
		cache:     cache,
		http: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		probeBin: opts.ProbeBin,
		logger:   logger.With().Str("component", "audio").Logger(),
	}

	// The S3 client is built lazily-tolerant: a missing AWS config only
	// matters if an s3:// locator actually shows up.
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.S3Region)}
	if opts.S3AccessKeyID != "" && opts.S3SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.S3AccessKeyID, opts.S3SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err == nil {
		f.s3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if opts.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(opts.S3Endpoint)
			}
			o.UsePathStyle = opts.S3UsePathStyle
		})
	} else {
		f.logger.Debug().Err(err).Msg("aws config unavailable, s3 locators disabled")
	}

	return f, nil
}

// Fetch resolves a locator to a local clip. Downloads are idempotent:
// the same locator resolves to the same cached file.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (playout.Clip, error) {
	if locator == "" {
		return playout.Clip{}, fmt.Errorf("empty locator")
	}

	var (
		path string
		err  error
	)
	switch {
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		path, err = f.fetchHTTP(ctx, locator)
	case strings.HasPrefix(locator, "s3://"):
		path, err = f.fetchS3(ctx, locator)
	default:
		path, err = f.resolveLocal(locator)
	}
	if err != nil {
		return playout.Clip{}, err
	}

	return playout.Clip{Path: path, Duration: f.probeDuration(ctx, path)}, nil
}

func (f *Fetcher) resolveLocal(locator string) (string, error) {
	path := locator
	if !filepath.IsAbs(path) && f.mediaRoot != "" {
		path = filepath.Join(f.mediaRoot, path)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("local clip %s: %w", path, err)
	}
	return path, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, locator string) (string, error) {
	if path := f.cache.Lookup(locator); path != "" {
		return path, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: status %d", locator, resp.StatusCode)
	}

	path, err := f.cache.Store(locator, resp.Body)
	if err != nil {
		return "", err
	}
	f.logger.Debug().Str("locator", locator).Str("path", path).Msg("clip downloaded")
	return path, nil
}

func (f *Fetcher) fetchS3(ctx context.Context, locator string) (string, error) {
	if f.s3 == nil {
		return "", fmt.Errorf("s3 locator %s: no aws configuration", locator)
	}
	if path := f.cache.Lookup(locator); path != "" {
		return path, nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("parsing s3 locator: %w", err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", fmt.Errorf("s3 locator %s: missing bucket or key", locator)
	}

	out, err := f.s3.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return "", fmt.Errorf("fetching s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	path, err := f.cache.Store(locator, out.Body)
	if err != nil {
		return "", err
	}
	f.logger.Debug().Str("locator", locator).Str("path", path).Msg("clip downloaded from s3")
	return path, nil
}

// probeDuration asks ffprobe for the real clip length. Zero means
// unknown; callers fall back to the declared track duration.
func (f *Fetcher) probeDuration(ctx context.Context, path string) time.Duration {
	if f.probeBin == "" {
		return 0
	}

	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, f.probeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	out, err := cmd.Output()
	if err != nil {
		f.logger.Debug().Err(err).Str("path", path).Msg("duration probe failed")
		return 0
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
