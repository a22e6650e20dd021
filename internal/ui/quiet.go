package ui

import "github.com/vgmkit/unvgz/internal/stats"

// quietPresenter consumes events but produces no output.
type quietPresenter struct {
	stats stats.Reader
}

func (p *quietPresenter) Run(events <-chan Event) error {
	// Counters are written by the engine directly; presenters only read
	// from the collector, never write.
	//nolint:revive // empty-block: intentionally draining event channel
	for range events {
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return ""
}
