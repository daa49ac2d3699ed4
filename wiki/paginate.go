package wiki

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/foomo/contentexport/service/vo"
	"go.uber.org/zap"
)

const untitled = "N/A"

type pageResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (p pageResult) ref() vo.PageRef {
	title := p.Title
	if title == "" {
		title = untitled
	}
	return vo.PageRef{ID: p.ID, Title: title}
}

type pageList struct {
	Results []pageResult `json:"results"`
	Links   struct {
		Next string `json:"next"`
	} `json:"_links"`
}

func (c *Client) firstPageParams() url.Values {
	return url.Values{
		"start":  {"0"},
		"limit":  {strconv.Itoa(c.pageLimit)},
		"expand": {"title"},
	}
}

// fetchPages follows _links.next from startURL until there is no next link or
// a page comes back empty. Only the first request carries params. On error the
// pages collected so far are returned together with the error.
func (c *Client) fetchPages(ctx context.Context, startURL string, params url.Values) ([]vo.PageRef, error) {
	var pages []vo.PageRef
	header := http.Header{"Accept": {"application/json"}}
	currentURL := startURL
	for currentURL != "" {
		c.logger.Debug("fetching page list", zap.String("url", currentURL), zap.Bool("firstRequest", params != nil))

		var list pageList
		if err := c.GetJSON(ctx, currentURL, params, header, &list); err != nil {
			return pages, err
		}
		params = nil

		if len(list.Results) == 0 {
			break
		}
		for _, result := range list.Results {
			pages = append(pages, result.ref())
		}
		if list.Links.Next == "" {
			break
		}
		currentURL = c.ResolveNext(list.Links.Next)
	}
	return pages, nil
}

// ResolveNext turns a server supplied next link into an absolute url. Links
// that already carry the base path prefix (/wiki/rest/...) are resolved
// against the origin, other paths against the base url.
func (c *Client) ResolveNext(next string) string {
	next = strings.TrimSpace(next)
	switch {
	case strings.HasPrefix(next, "http://"), strings.HasPrefix(next, "https://"):
		return next
	case strings.HasPrefix(next, "//"):
		return c.base.Scheme + ":" + next
	case strings.HasPrefix(next, "/"):
		prefix := strings.TrimRight(c.base.Path, "/")
		if prefix != "" && (next == prefix || strings.HasPrefix(next, prefix+"/")) {
			return c.Origin() + next
		}
		return c.baseURL + next
	default:
		c.logger.Warn("unrecognised next link format, joining with base url", zap.String("next", next))
		return c.baseURL + "/" + next
	}
}
