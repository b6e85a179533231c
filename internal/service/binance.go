package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"coinfolio/internal/models"

	"github.com/sirupsen/logrus"
)

// Fetcher returns the full current ticker list of a price feed.
type Fetcher interface {
	FetchTickers(ctx context.Context) ([]models.TickerEntry, error)
}

// BinanceClient reads the public 24h ticker endpoint. It needs no key and
// takes no parameters.
type BinanceClient struct {
	url        string
	httpClient *http.Client
	log        *logrus.Logger
}

func NewBinanceClient(url string, log *logrus.Logger) *BinanceClient {
	return &BinanceClient{url: url, httpClient: &http.Client{}, log: log}
}

func (c *BinanceClient) FetchTickers(ctx context.Context) ([]models.TickerEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("ticker request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticker request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ticker feed returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var raw []models.TickerEntry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode ticker feed: %w", err)
	}
	entries := make([]models.TickerEntry, 0, len(raw))
	for _, e := range raw {
		if e.Symbol == "" {
			continue
		}
		entries = append(entries, e)
	}
	c.log.Debugf("ticker feed: %d entries", len(entries))
	return entries, nil
}
