package accounts

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Syncer periodically enqueues sync jobs for every enabled account.
type Syncer struct {
	service  *Service
	interval time.Duration
	ticker   *time.Ticker
	stop     chan struct{}
	done     chan struct{}
}

func NewSyncer(service *Service, interval time.Duration) *Syncer {
	return &Syncer{
		service:  service,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Syncer) Start() {
	s.ticker = time.NewTicker(s.interval)
	log.WithFields(log.Fields{"interval": s.interval}).Info("Scheduled sync started")

	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.ticker.C:
				s.service.SyncAll(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Syncer) Stop() {
	s.ticker.Stop()
	close(s.stop)
	<-s.done
}
