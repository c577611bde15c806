package http

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed frontpage.html
var defaultFrontPage []byte

func (h *Handlers) loadFrontPage() ([]byte, error) {
	if h.frontPage == "" {
		return defaultFrontPage, nil
	}
	page, err := os.ReadFile(h.frontPage)
	if err != nil {
		return nil, fmt.Errorf("could not load front page: %w", err)
	}
	return page, nil
}
