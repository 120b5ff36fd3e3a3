package sumoapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	routeBanzuke     = "/basho/{bashoId}/banzuke/{division}"
	routeBasho       = "/basho/{bashoId}"
	routeRikishiList = "/rikishis"
	routeRikishi     = "/rikishi/{rikishiId}"
)

// GetBanzuke fetches the rankings of one division for one basho.
func (c *Client) GetBanzuke(ctx context.Context, bashoID string, division string) (*Banzuke, error) {
	bashoID = strings.TrimSpace(bashoID)
	division = strings.TrimSpace(division)
	if bashoID == "" || division == "" {
		return nil, errors.New("basho id and division are required")
	}

	path := fmt.Sprintf("/basho/%s/banzuke/%s", url.PathEscape(bashoID), url.PathEscape(division))

	var out Banzuke
	if err := c.getJSON(ctx, routeBanzuke, path, &out); err != nil {
		c.logFetchFailure("banzuke", bashoID+"/"+division, err)
		return nil, err
	}
	return &out, nil
}

// GetBashoResults fetches yusho winners and special prizes for a basho.
func (c *Client) GetBashoResults(ctx context.Context, bashoID string) (*BashoResults, error) {
	bashoID = strings.TrimSpace(bashoID)
	if bashoID == "" {
		return nil, errors.New("basho id is required")
	}

	var out BashoResults
	if err := c.getJSON(ctx, routeBasho, "/basho/"+url.PathEscape(bashoID), &out); err != nil {
		c.logFetchFailure("basho results", bashoID, err)
		return nil, err
	}
	return &out, nil
}

// ListRikishi fetches all rikishi.
func (c *Client) ListRikishi(ctx context.Context) (*RikishiList, error) {
	var out RikishiList
	if err := c.getJSON(ctx, routeRikishiList, "/rikishis", &out); err != nil {
		c.logFetchFailure("rikishi list", "all", err)
		return nil, err
	}
	return &out, nil
}

// GetRikishi fetches a single rikishi profile.
func (c *Client) GetRikishi(ctx context.Context, rikishiID int) (*Rikishi, error) {
	if rikishiID <= 0 {
		return nil, fmt.Errorf("invalid rikishi id: %d", rikishiID)
	}

	var out Rikishi
	if err := c.getJSON(ctx, routeRikishi, "/rikishi/"+strconv.Itoa(rikishiID), &out); err != nil {
		c.logFetchFailure("rikishi", strconv.Itoa(rikishiID), err)
		return nil, err
	}
	return &out, nil
}

func (c *Client) logFetchFailure(resource string, key string, err error) {
	if c == nil || c.Logger == nil {
		return
	}
	c.Logger.Debug("Failed to fetch "+resource,
		zap.String("key", key),
		zap.String("kind", KindOf(err).String()),
		zap.Error(err))
}
