// Package pagination holds the listing window of the monitor view.
package pagination

import "errors"

var ErrInvalidPageSize = errors.New("page size must be positive")

const DefaultPageSize = 10

// Window is the half-open range [Start, End) of the listing on screen.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Controller is plain state. It is not safe for concurrent use; its owner
// serializes access.
type Controller struct {
	start int
	size  int
}

func New(start, size int) *Controller {
	if size <= 0 {
		size = DefaultPageSize
	}
	if start < 0 {
		start = 0
	}
	return &Controller{start: start, size: size}
}

func (c *Controller) Get() int {
	return c.size
}

// Set changes the page size and keeps the window start.
func (c *Controller) Set(size int) error {
	if size <= 0 {
		return ErrInvalidPageSize
	}
	c.size = size
	return nil
}

func (c *Controller) Window() Window {
	return Window{Start: c.start, End: c.start + c.size}
}

// Goto moves the window to the zero based page.
func (c *Controller) Goto(page int) {
	if page < 0 {
		page = 0
	}
	c.start = page * c.size
}

// Slice returns the part of list inside w, clamped to its bounds.
func Slice[T any](list []T, w Window) []T {
	start, end := w.Start, w.End
	if start < 0 {
		start = 0
	}
	if end > len(list) {
		end = len(list)
	}
	if start >= end {
		return []T{}
	}
	return list[start:end]
}
