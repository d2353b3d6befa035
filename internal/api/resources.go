package api

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/backyonatan-alt/fiftyone/internal/model"
)

func (c *Client) Stocks(ctx context.Context) ([]model.Stock, error) {
	var stocks []model.Stock
	if err := c.FetchJSON(ctx, pathStocks, nil, &stocks); err != nil {
		return nil, err
	}
	c.logger.Debug("stocks fetched", "count", len(stocks))
	return stocks, nil
}

func (c *Client) Webcams(ctx context.Context) (model.Webcams, error) {
	var webcams model.Webcams
	if err := c.FetchJSON(ctx, pathWebcams, nil, &webcams); err != nil {
		return nil, err
	}
	c.logger.Debug("webcams fetched", "count", len(webcams))
	return webcams, nil
}

// Aviation returns weather and runway state for LSZI.
func (c *Client) Aviation(ctx context.Context) (model.Aviation, error) {
	var aviation model.Aviation
	if err := c.FetchJSON(ctx, pathAviationLSZI, nil, &aviation); err != nil {
		return model.Aviation{}, err
	}
	return aviation, nil
}

// Pictures returns the family picture listing.
func (c *Client) Pictures(ctx context.Context) ([]model.Picture, error) {
	var pictures []model.Picture
	if err := c.FetchJSON(ctx, pathPictures, nil, &pictures); err != nil {
		return nil, err
	}
	return pictures, nil
}

// WebcamImage downloads the image behind a URL taken from the webcam map.
func (c *Client) WebcamImage(ctx context.Context, imageURL string) ([]byte, error) {
	return c.image(ctx, imageURL, nil)
}

func (c *Client) PictureImage(ctx context.Context, id string) ([]byte, error) {
	return c.image(ctx, pathPictures+"/"+url.PathEscape(id), nil)
}

// LatestImage returns the newest picture of an image source. An empty code
// asks for the newest picture across all sources; maxHeight <= 0 uses the
// client default.
func (c *Client) LatestImage(ctx context.Context, code string, maxHeight int) ([]byte, error) {
	return c.image(ctx, pathLatestImage, c.imageQuery(code, maxHeight))
}

// RandomImage is LatestImage's counterpart for a random picture.
func (c *Client) RandomImage(ctx context.Context, code string, maxHeight int) ([]byte, error) {
	return c.image(ctx, pathRandomImage, c.imageQuery(code, maxHeight))
}

func (c *Client) imageQuery(code string, maxHeight int) url.Values {
	if maxHeight <= 0 {
		maxHeight = c.maxHeight
	}
	q := url.Values{}
	if code != "" {
		q.Set("code", code)
	}
	q.Set("max_height", strconv.Itoa(maxHeight))
	return q
}

func (c *Client) image(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	data, err := c.FetchBytes(ctx, rawURL, query)
	if err != nil {
		return nil, err
	}
	if c.logger.Enabled(ctx, slog.LevelDebug) {
		c.logger.Debug("image fetched", "url", rawURL, "size", humanize.Bytes(uint64(len(data))))
	}
	return data, nil
}
