package main

import (
	"context"
	"time"
)

const pruneEvery = time.Minute

// RunFrames drives the completion animation of every session until ctx is
// done. Sessions older than ttl are dropped once a minute.
func (s *Server) RunFrames(ctx context.Context, interval, ttl time.Duration) {
	frames := time.NewTicker(interval)
	defer frames.Stop()
	prune := time.NewTicker(pruneEvery)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-frames.C:
			s.tickFrames()
		case now := <-prune.C:
			if n := s.store.Prune(now.Add(-ttl)); n > 0 {
				s.logger.Info("sessions pruned", "count", n)
			}
		}
	}
}

// tickFrames advances busy sessions by one frame and publishes the ones
// that changed. It returns the number of published snapshots.
func (s *Server) tickFrames() int {
	n := 0
	for _, g := range s.store.ListGames() {
		if !g.Busy() {
			continue
		}
		if g.Tick() {
			s.publishSnapshot(g)
			n++
		}
	}
	return n
}
