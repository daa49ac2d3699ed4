package wiki

import (
	"context"
	"fmt"
	"net/url"

	"github.com/foomo/contentexport/service/vo"
	"go.uber.org/zap"
)

// Page looks up a single page by id.
func (c *Client) Page(ctx context.Context, id string) (vo.PageRef, error) {
	apiURL := c.baseURL + "/rest/api/content/" + url.PathEscape(id)
	c.logger.Info("fetching page details", zap.String("pageID", id), zap.String("url", apiURL))

	var result pageResult
	if err := c.GetJSON(ctx, apiURL, nil, nil, &result); err != nil {
		return vo.PageRef{}, fmt.Errorf("page %s: %w", id, err)
	}
	if result.ID == "" {
		result.ID = id
	}
	return result.ref(), nil
}

// SpacePages lists the pages of a space.
func (c *Client) SpacePages(ctx context.Context, spaceKey string) ([]vo.PageRef, error) {
	apiURL := c.baseURL + "/rest/api/space/" + url.PathEscape(spaceKey) + "/content/page"
	params := c.firstPageParams()
	if c.rootOnly {
		params.Set("depth", "root")
	}
	c.logger.Info("fetching pages of space", zap.String("space", spaceKey), zap.Int("limit", c.pageLimit))

	pages, err := c.fetchPages(ctx, apiURL, params)
	if err != nil {
		return nil, fmt.Errorf("pages of space %s: %w", spaceKey, err)
	}
	return pages, nil
}

// Children lists the direct child pages. A not found response means the page
// has no children.
func (c *Client) Children(ctx context.Context, pageID string) ([]vo.PageRef, error) {
	apiURL := c.baseURL + "/rest/api/content/" + url.PathEscape(pageID) + "/child/page"
	c.logger.Debug("fetching direct children", zap.String("pageID", pageID))

	pages, err := c.fetchPages(ctx, apiURL, c.firstPageParams())
	if IsNotFound(err) {
		c.logger.Info("no children found (404)", zap.String("pageID", pageID))
		return pages, nil
	}
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", pageID, err)
	}
	return pages, nil
}
