// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package training

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// ReloadNotifier tells the inference daemon to pick up fresh artifacts
// after a training run. The call is best-effort: the engine also serves
// stale models happily until its next reload.
type ReloadNotifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewReloadNotifier builds a notifier for the engine at baseURL.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func NewReloadNotifier(baseURL string, client *http.Client, logger zerolog.Logger) *ReloadNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &ReloadNotifier{
		url:    strings.TrimRight(baseURL, "/") + "/reload",
		client: client,
		logger: logger,
	}
}

// Notify POSTs the reload signal. Callers log and swallow the returned
// error; a missed signal only delays model pickup.
func (n *ReloadNotifier) Notify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build reload request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send reload signal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("reload signal rejected: %s", resp.Status)
	}
	n.logger.Info().Int("status", resp.StatusCode).Msg("reload signal sent")
	return nil
}
