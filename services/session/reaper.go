package session

import (
	"log"
	"time"
)

// Reaper periodically prunes expired sessions
type Reaper struct {
	service  *Service
	interval time.Duration
	stopChan chan struct{}
}

// NewReaper creates a reaper for the given session service
func NewReaper(svc *Service, interval time.Duration) *Reaper {
	return &Reaper{
		service:  svc,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins periodic pruning
func (r *Reaper) Start() {
	log.Printf("Starting session reaper: interval=%v", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.service.prune()
		case <-r.stopChan:
			log.Println("Session reaper stopped")
			return
		}
	}
}

// Stop stops the reaper
func (r *Reaper) Stop() {
	close(r.stopChan)
}
