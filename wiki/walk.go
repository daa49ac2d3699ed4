package wiki

import (
	"context"

	"github.com/foomo/contentexport/service/vo"
	"go.uber.org/zap"
)

// ChildLister lists the direct children of a page.
type ChildLister interface {
	Children(ctx context.Context, pageID string) ([]vo.PageRef, error)
}

type Walker struct {
	children ChildLister
	logger   *zap.Logger
}

// WalkResult holds every encounter in display order and the deduplicated
// pages in first seen order.
type WalkResult struct {
	Visits  []vo.Visit
	Summary *vo.PageSummary
	// Expanded is the number of pages whose children were fetched.
	Expanded int
}

func NewWalker(children ChildLister, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{children: children, logger: logger}
}

// Walk visits the roots and all of their descendants depth first, pre-order.
// A page reachable more than once is reported on every encounter but its
// children are only fetched the first time. onVisit may be nil.
func (w *Walker) Walk(ctx context.Context, roots []vo.PageRef, onVisit func(vo.Visit)) *WalkResult {
	result := &WalkResult{Summary: vo.NewPageSummary()}
	visited := map[string]struct{}{}

	stack := make([]vo.Visit, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, vo.Visit{Page: roots[i]})
	}

	for len(stack) > 0 {
		visit := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		result.Visits = append(result.Visits, visit)
		if onVisit != nil {
			onVisit(visit)
		}
		result.Summary.Add(visit.Page)

		if _, ok := visited[visit.Page.ID]; ok {
			w.logger.Warn("children already processed, skipping",
				zap.String("pageID", visit.Page.ID),
				zap.String("title", visit.Page.Title),
			)
			continue
		}
		visited[visit.Page.ID] = struct{}{}
		result.Expanded++

		children, err := w.children.Children(ctx, visit.Page.ID)
		if err != nil {
			w.logger.Error("failed to list children, treating page as leaf",
				zap.String("pageID", visit.Page.ID),
				zap.String("title", visit.Page.Title),
				zap.Error(err),
			)
			continue
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, vo.Visit{Page: children[i], Depth: visit.Depth + 1})
		}
	}
	return result
}
