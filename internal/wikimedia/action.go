package wikimedia

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Redirect is one incoming redirect of a page, with the section fragment the
// redirect targets, when it targets one.
type Redirect struct {
	Title    string
	Fragment string
}

// Redirects lists page itself followed by every redirect pointing at it,
// capped at 500 like the tools have always requested.
func (c *Client) Redirects(ctx context.Context, project, page string) ([]Redirect, error) {
	q := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"prop":          {"redirects"},
		"rdprop":        {"title|fragment"},
		"rdlimit":       {"500"},
		"titles":        {DisplayTitle(page)},
	}
	var res struct {
		Error *struct {
			Info string `json:"info"`
		} `json:"error"`
		Query struct {
			Pages []struct {
				Title     string `json:"title"`
				Missing   bool   `json:"missing"`
				Redirects []struct {
					Title    string `json:"title"`
					Fragment string `json:"fragment"`
				} `json:"redirects"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, c.actionURL(project, q), &res); err != nil {
		return nil, err
	}
	if res.Error != nil {
		return nil, fmt.Errorf("wikimedia: redirect query: %s", res.Error.Info)
	}
	if len(res.Query.Pages) == 0 || res.Query.Pages[0].Missing {
		return nil, &APIError{Status: 404, Title: "Not found."}
	}
	p := res.Query.Pages[0]
	out := []Redirect{{Title: p.Title}}
	for _, r := range p.Redirects {
		out = append(out, Redirect{Title: r.Title, Fragment: r.Fragment})
	}
	return out, nil
}

// PageInfo is edit-side metadata used for the extra table columns.
type PageInfo struct {
	Title      string
	Length     int64
	Watchers   int64
	Protection string
}

// PageInfos fetches info for up to 50 pages in one call, keyed by normalized
// title.
func (c *Client) PageInfos(ctx context.Context, project string, pages []string) (map[string]PageInfo, error) {
	titles := make([]string, 0, len(pages))
	for _, p := range pages {
		titles = append(titles, DisplayTitle(p))
	}
	q := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"prop":          {"info"},
		"inprop":        {"protection|watchers"},
		"titles":        {strings.Join(titles, "|")},
	}
	var res struct {
		Query struct {
			Pages []struct {
				Title      string `json:"title"`
				Length     int64  `json:"length"`
				Watchers   int64  `json:"watchers"`
				Protection []struct {
					Type  string `json:"type"`
					Level string `json:"level"`
				} `json:"protection"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, c.actionURL(project, q), &res); err != nil {
		return nil, err
	}
	out := make(map[string]PageInfo, len(res.Query.Pages))
	for _, p := range res.Query.Pages {
		info := PageInfo{
			Title:    p.Title,
			Length:   p.Length,
			Watchers: p.Watchers,
		}
		for _, pr := range p.Protection {
			if pr.Type == "edit" {
				info.Protection = pr.Level
			}
		}
		out[NormalizeTitle(p.Title)] = info
	}
	return out, nil
}

func (c *Client) actionURL(project string, q url.Values) string {
	base := fmt.Sprintf("https://%s.org/w/api.php", project)
	if c.ActionBase != "" {
		base = c.ActionBase
	}
	return base + "?" + q.Encode()
}
