package main

import (
	"github.com/bodul/dailyword/internal/game"
	"github.com/charmbracelet/log"
)

// analytics logs session events and forwards them to subscribers.
type analytics struct {
	logger *log.Logger
	sse    *Broadcaster
}

func (a *analytics) tracker(sessionID string) game.Tracker {
	return game.TrackerFunc(func(e game.Event) {
		if e.Kind == game.EventComplete {
			a.logger.Info("analytics", "session", sessionID, "event", e.Kind, "elapsed", e.Elapsed)
		} else {
			a.logger.Info("analytics", "session", sessionID, "event", e.Kind)
		}
		a.sse.Publish(sessionID, Event{Type: EventAnalytics, Data: e})
	})
}
