package partner

import (
	"time"

	"github.com/fastship-next/internal/http/handlers/shared"
	"github.com/fastship-next/internal/http/response"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateShipmentRequest 运单状态更新请求
type UpdateShipmentRequest struct {
	Status            *string    `json:"status"`
	Location          *uint      `json:"location"`
	Description       *string    `json:"description"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	VerificationCode  *string    `json:"verification_code"`
}

// ListShipments 已分配运单分页列表
func (h *Handler) ListShipments(c *gin.Context) {
	partnerID, ok := shared.AccountID(c)
	if !ok {
		return
	}
	var query shared.ShipmentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	filter := query.Filter()
	shipments, total, err := h.ShipmentService.ListForPartner(partnerID, filter)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, shipments, response.NewPagination(filter.Page, filter.PageSize, total))
}

// GetShipment 运单详情
func (h *Handler) GetShipment(c *gin.Context) {
	shipment, ok := h.assignedShipment(c)
	if !ok {
		return
	}
	response.Success(c, shipment)
}

// Timeline 运单事件时间线（最新在前）
func (h *Handler) Timeline(c *gin.Context) {
	shipment, ok := h.assignedShipment(c)
	if !ok {
		return
	}
	events, err := h.ShipmentService.Timeline(shipment.ID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, events)
}

// UpdateShipment 推进运单状态或补充信息
func (h *Handler) UpdateShipment(c *gin.Context) {
	partnerID, ok := shared.AccountID(c)
	if !ok {
		return
	}
	var req UpdateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	shipment, err := h.ShipmentService.Update(c.Request.Context(), c.Param("id"), partnerID, service.UpdateShipmentInput{
		Status:            req.Status,
		Location:          req.Location,
		Description:       req.Description,
		EstimatedDelivery: req.EstimatedDelivery,
		VerificationCode:  req.VerificationCode,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, shipment)
}

// AddTag 添加标签
func (h *Handler) AddTag(c *gin.Context) {
	shipment, ok := h.assignedShipment(c)
	if !ok {
		return
	}
	var req shared.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	tags, err := h.ShipmentService.AddTag(shipment.ID, req.Name)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, tags)
}

// RemoveTag 移除标签
func (h *Handler) RemoveTag(c *gin.Context) {
	shipment, ok := h.assignedShipment(c)
	if !ok {
		return
	}
	tags, err := h.ShipmentService.RemoveTag(shipment.ID, c.Param("tag"))
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, tags)
}

func (h *Handler) assignedShipment(c *gin.Context) (*models.Shipment, bool) {
	partnerID, ok := shared.AccountID(c)
	if !ok {
		return nil, false
	}
	shipment, err := h.ShipmentService.GetForPartner(c.Param("id"), partnerID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return nil, false
	}
	return shipment, true
}
