package server

import (
	"context"

	"github.com/open-cli-collective/mdmx/internal/watch"
)

// watchPages invalidates the page cache whenever a page source changes.
func (s *Server) watchPages(ctx context.Context) error {
	w := &watch.Watcher{
		Exts:   pageExts,
		Logger: s.logger,
		OnChange: func(paths []string) {
			s.logger.Info("pages changed, clearing cache", "files", len(paths))
			s.Invalidate()
		},
	}
	return w.Run(ctx, s.pagesDir)
}
