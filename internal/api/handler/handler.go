package handler

import "my-page/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Drawing   *DrawingHandler
	Period    *PeriodHandler
	Wish      *WishHandler
	Execution *ExecutionHandler
	Export    *ExportHandler
	Apartment *ApartmentHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Drawing:   NewDrawingHandler(svc.Drawing),
		Period:    NewPeriodHandler(svc.Period),
		Wish:      NewWishHandler(svc.Wish),
		Execution: NewExecutionHandler(svc.Execution),
		Export:    NewExportHandler(svc.Export),
		Apartment: NewApartmentHandler(svc.Apartment),
	}
}
