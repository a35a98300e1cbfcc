// Package wikimedia is a thin client for the Wikimedia REST and MediaWiki
// action APIs: per-article pageviews, per-project siteviews, unique devices,
// per-file mediarequests, redirect expansion and basic page info.
package wikimedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wikistats/wikiviews/internal/log"
	"github.com/wikistats/wikiviews/internal/series"
	"github.com/wikistats/wikiviews/internal/timex"
)

const (
	DefaultRestBase = "https://wikimedia.org/api/rest_v1"
	// rest timestamps are YYYYMMDDHH with the hour always 00 for daily
	// granularity
	restStamp = "2006010200"
)

// cassandraError is the upstream title that signals transient storage
// unavailability. It is the only failure worth retrying; everything else,
// not-found included, is terminal for the entity.
const cassandraError = "Error in Cassandra table storage backend"

// APIError is a non-2xx reply from either API, decoded from the problem+json
// body when one is present.
type APIError struct {
	Status int
	Title  string
	Detail string
}

func (e *APIError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("wikimedia: %s (status %d)", e.Title, e.Status)
	}
	return fmt.Sprintf("wikimedia: status %d", e.Status)
}

// Retryable reports whether the failure is the transient storage backend
// error.
func (e *APIError) Retryable() bool {
	return e.Title == cassandraError
}

// IsRetryable classifies an arbitrary fetch error. Unknown error types are
// terminal.
func IsRetryable(err error) bool {
	var api *APIError
	return errors.As(err, &api) && api.Retryable()
}

// NotFound reports whether err is a terminal not-found reply.
func NotFound(err error) bool {
	var api *APIError
	return errors.As(err, &api) && api.Status == http.StatusNotFound
}

// NormalizeTitle canonicalizes an entity name the way MediaWiki does: spaces
// become underscores and the result is trimmed. Two titles that normalize
// identically are the same entity.
func NormalizeTitle(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}

// DisplayTitle is the inverse of NormalizeTitle for human-facing output.
func DisplayTitle(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

type Client struct {
	HTTP     *http.Client
	RestBase string
	// ActionBase overrides the per-project action API endpoint, mainly for
	// tests. Empty means https://{project}.org/w/api.php.
	ActionBase string
	UserAgent  string
}

func New() *Client {
	return &Client{
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		RestBase: DefaultRestBase,
	}
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		api := &APIError{Status: res.StatusCode}
		// best effort: REST errors carry problem+json bodies
		var problem struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &problem) == nil {
			api.Title, api.Detail = problem.Title, problem.Detail
		}
		log.Get().Debug().
			Str("component", "wikimedia").
			Int("status", res.StatusCode).
			Str("title", api.Title).
			Msg("api error")
		return api
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("wikimedia: decode %s: %w", u, err)
	}
	return nil
}

type restItems struct {
	Items []struct {
		Timestamp string `json:"timestamp"`
		Views     int64  `json:"views"`
		Devices   int64  `json:"devices"`
		Requests  int64  `json:"requests"`
	} `json:"items"`
}

func (r restItems) raw(pick func(views, devices, requests int64) int64) (series.Raw, error) {
	out := make(series.Raw, 0, len(r.Items))
	for _, it := range r.Items {
		ts, err := time.Parse(restStamp, it.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("wikimedia: timestamp %q: %w", it.Timestamp, err)
		}
		out = append(out, series.RawPoint{
			Date:  timex.DateOf(ts),
			Views: pick(it.Views, it.Devices, it.Requests),
		})
	}
	return out, nil
}

func views(v, _, _ int64) int64    { return v }
func devices(_, d, _ int64) int64  { return d }
func requests(_, _, r int64) int64 { return r }

// PageviewsPerArticle fetches the daily pageview series for one article.
func (c *Client) PageviewsPerArticle(ctx context.Context, project, platform, agent, title string, r timex.Range) (series.Raw, error) {
	u := fmt.Sprintf("%s/metrics/pageviews/per-article/%s/%s/%s/%s/daily/%s/%s",
		c.RestBase, project, platform, agent,
		url.PathEscape(NormalizeTitle(title)),
		r.Start.Time().Format(restStamp), r.End.Time().Format(restStamp))
	var res restItems
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return res.raw(views)
}

// Siteviews fetches the daily pageview series for a whole project.
func (c *Client) Siteviews(ctx context.Context, project, platform, agent string, r timex.Range) (series.Raw, error) {
	u := fmt.Sprintf("%s/metrics/pageviews/aggregate/%s/%s/%s/daily/%s/%s",
		c.RestBase, project, platform, agent,
		r.Start.Time().Format(restStamp), r.End.Time().Format(restStamp))
	var res restItems
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return res.raw(views)
}

// UniqueDevices fetches the daily unique devices series for a project.
func (c *Client) UniqueDevices(ctx context.Context, project, accessSite string, r timex.Range) (series.Raw, error) {
	u := fmt.Sprintf("%s/metrics/unique-devices/%s/%s/daily/%s/%s",
		c.RestBase, project, accessSite,
		r.Start.Time().Format(restStamp), r.End.Time().Format(restStamp))
	var res restItems
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return res.raw(devices)
}

// Mediarequests fetches the daily request series for one file.
func (c *Client) Mediarequests(ctx context.Context, referer, agent, filePath string, r timex.Range) (series.Raw, error) {
	u := fmt.Sprintf("%s/metrics/mediarequests/per-file/%s/%s/%s/daily/%s/%s",
		c.RestBase, referer, agent,
		url.PathEscape(NormalizeTitle(filePath)),
		r.Start.Time().Format(restStamp), r.End.Time().Format(restStamp))
	var res restItems
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return res.raw(requests)
}
