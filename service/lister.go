package service

import (
	"context"
	"strings"

	"github.com/foomo/contentexport/wiki"
	"go.uber.org/zap"
)

// Lister discovers the page hierarchy without exporting anything.
type Lister struct {
	pages           PageSource
	walker          Walker
	defaultSpaceKey string
	logger          *zap.Logger
}

func NewLister(pages PageSource, walker Walker, defaultSpaceKey string, logger *zap.Logger) *Lister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lister{pages: pages, walker: walker, defaultSpaceKey: defaultSpaceKey, logger: logger}
}

// ListPages walks the subtree of parentPageID, or the whole space when it is
// empty. An empty spaceKey selects the configured space.
func (l *Lister) ListPages(ctx context.Context, spaceKey, parentPageID string) (*wiki.WalkResult, error) {
	spaceKey = strings.ToUpper(strings.TrimSpace(spaceKey))
	if spaceKey == "" {
		spaceKey = l.defaultSpaceKey
	}
	roots, err := resolveRoots(ctx, l.pages, spaceKey, strings.TrimSpace(parentPageID), l.logger)
	if err != nil {
		return nil, err
	}
	return l.walker.Walk(ctx, roots, nil), nil
}
