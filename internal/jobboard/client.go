// Package jobboard talks to a JSearch-style job board API and adapts its
// listings into postings.
package jobboard

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/jobforge/jobforge/internal/profile"
)

const (
	searchPath      = "/search"
	contentType     = "application/json"
	contentEncoding = "gzip, deflate, br"

	defaultUserAgent = "jobforge"
)

// Client is an HTTP client for the board's search API.
type Client struct {
	APIURL     string
	HTTPClient *http.Client
	UserAgent  string

	token  string
	logger *zap.Logger
}

func New(apiURL, token string, logger *zap.Logger) *Client {
	return &Client{
		APIURL:     apiURL,
		HTTPClient: &http.Client{},
		UserAgent:  defaultUserAgent,
		token:      token,
		logger:     logger,
	}
}

// searchResponse is the board's paged envelope.
type searchResponse struct {
	Data []any `json:"data"`
}

// postingItem mirrors one listing in the board's schema.
type postingItem struct {
	ID          string `json:"job_id"`
	Title       string `json:"job_title"`
	Employer    string `json:"employer_name"`
	City        string `json:"job_city"`
	Country     string `json:"job_country"`
	ApplyLink   string `json:"job_apply_link"`
	Description string `json:"job_description"`
	PostedAt    string `json:"job_posted_at_datetime_utc"`
}

// Search fetches one page of listings for the query. One call is one page;
// paging decisions belong to the caller.
func (c *Client) Search(ctx context.Context, query string, page, pageSize int) ([]profile.Posting, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("num_pages", "1")
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}

	var response searchResponse
	if err := c.getJSON(ctx, c.APIURL+searchPath, q, &response); err != nil {
		return nil, fmt.Errorf("search %q page %d: %w", query, page, err)
	}

	items := make([]postingItem, 0, len(response.Data))
	cfg := &mapstructure.DecoderConfig{
		Result:  &items,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(response.Data); err != nil {
		return nil, fmt.Errorf("decode search items: %w", err)
	}

	postings := make([]profile.Posting, 0, len(items))
	for _, item := range items {
		postings = append(postings, item.posting())
	}

	c.logger.Debug("got search page from board",
		zap.String("query", query),
		zap.Int("page", page),
		zap.Int("items", len(postings)),
	)
	return postings, nil
}

func (item postingItem) posting() profile.Posting {
	location := item.City
	if item.Country != "" {
		if location != "" {
			location += ", "
		}
		location += item.Country
	}

	p := profile.Posting{
		Title:       item.Title,
		Company:     item.Employer,
		Location:    location,
		ExternalID:  item.ID,
		URL:         item.ApplyLink,
		Description: item.Description,
	}
	if item.PostedAt != "" {
		if ts, err := time.Parse(time.RFC3339, item.PostedAt); err == nil {
			p.PostedAt = ts
		}
	}
	return p
}

func (c *Client) getJSON(ctx context.Context, rawURL string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("Content-Type", contentType)
	req.URL.RawQuery = q.Encode()

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return json.Unmarshal(data, target)
}
