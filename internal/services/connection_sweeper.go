package services

import (
	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ConnectionSweeper periodically pings websocket clients and drops the dead ones.
type ConnectionSweeper struct {
	cron              *cron.Cron
	spec              string
	connectionManager domain.ConnectionManager
	log               logger.Logger
}

func NewConnectionSweeper(spec string, connectionManager domain.ConnectionManager, log logger.Logger) *ConnectionSweeper {
	return &ConnectionSweeper{
		cron:              cron.New(),
		spec:              spec,
		connectionManager: connectionManager,
		log:               log,
	}
}

func (s *ConnectionSweeper) Start() error {
	s.log.Info("Starting connection sweeper", "spec", s.spec)

	if _, err := s.cron.AddFunc(s.spec, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish.
func (s *ConnectionSweeper) Stop() {
	s.log.Info("Stopping connection sweeper")
	<-s.cron.Stop().Done()
}

func (s *ConnectionSweeper) sweep() {
	if dropped := s.connectionManager.Sweep(); dropped > 0 {
		s.log.Info("Dropped dead connections", "count", dropped)
	}
}
