package handler

import (
	"context"
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/model"
	"github.com/JaePyJs/CLMS-sub014/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CirculationService interface {
	Checkout(ctx context.Context, req model.CheckoutRequest) (model.CheckoutRecord, error)
	Return(ctx context.Context, sessionUID string, returnTime time.Time) (model.CheckoutRecord, error)
	Cancel(ctx context.Context, sessionUID, reason string) (model.CheckoutRecord, error)
	ListOverdue(ctx context.Context) ([]model.CheckoutRecord, error)
	ListByPatron(ctx context.Context, patronID string) ([]model.CheckoutRecord, error)
	ListResources(ctx context.Context) ([]model.Resource, error)
}

var _ CirculationService = (*service.Service)(nil)
