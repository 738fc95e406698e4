package service

import (
	"errors"
	"time"

	"train-chat/internal/general/logger"
	"train-chat/internal/ports"
)

// ErrInvalidLimit is returned for a limit that is not a positive integer.
var ErrInvalidLimit = errors.New("limit must be a positive integer")

const (
	DefaultEventsLimit = 50
	consumerTag        = "admin-service-presence"
	consumerPrefetch   = 1
)

type adminService struct {
	uow      ports.UnitOfWork
	events   ports.PresenceEventRepository
	roster   ports.RosterStore
	consumer ports.QueueConsumer
	logger   *logger.Logger
	now      func() time.Time
	retry    time.Duration
}

// NewAdminService wires the journal, the roster mirror and the queue.
func NewAdminService(
	uow ports.UnitOfWork,
	events ports.PresenceEventRepository,
	roster ports.RosterStore,
	consumer ports.QueueConsumer,
	logger *logger.Logger,
) ports.AdminService {
	return &adminService{
		uow:      uow,
		events:   events,
		roster:   roster,
		consumer: consumer,
		logger:   logger,
		now:      time.Now,
		retry:    2 * time.Second,
	}
}
