package service

import (
	"taxiflow/notify"
	"taxiflow/pkg/logger"
	"taxiflow/storage"
)

// PartnerShare is the fraction of gross price paid out to the partner;
// the platform keeps the remaining 10%.
const PartnerShare = 0.9

type IServiceManager interface {
	Order() OrderService
	Settlement() SettlementService
}

type service struct {
	orderService      OrderService
	settlementService SettlementService
}

func New(stg storage.IStorage, bus notify.Bus, log logger.ILogger) IServiceManager {
	return &service{
		orderService:      NewOrderService(stg, bus, log),
		settlementService: NewSettlementService(stg, log),
	}
}

func (s *service) Order() OrderService {
	return s.orderService
}

func (s *service) Settlement() SettlementService {
	return s.settlementService
}
