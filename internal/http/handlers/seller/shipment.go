package seller

import (
	"github.com/fastship-next/internal/http/handlers/shared"
	"github.com/fastship-next/internal/http/response"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateShipmentRequest 创建运单请求
type CreateShipmentRequest struct {
	Content            string        `json:"content" binding:"required"`
	Weight             models.Weight `json:"weight"`
	Destination        uint          `json:"destination" binding:"required"`
	ClientContactEmail string        `json:"client_contact_email" binding:"required"`
	ClientContactPhone string        `json:"client_contact_phone" binding:"required"`
}

// CreateShipment 创建运单并自动分配配送员
func (h *Handler) CreateShipment(c *gin.Context) {
	sellerID, ok := shared.AccountID(c)
	if !ok {
		return
	}
	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	shipment, err := h.ShipmentService.Create(c.Request.Context(), sellerID, service.CreateShipmentInput{
		Content:            req.Content,
		Weight:             req.Weight,
		Destination:        req.Destination,
		ClientContactEmail: req.ClientContactEmail,
		ClientContactPhone: req.ClientContactPhone,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Created(c, shipment)
}

// ListShipments 卖家运单分页列表
func (h *Handler) ListShipments(c *gin.Context) {
	sellerID, ok := shared.AccountID(c)
	if !ok {
		return
	}
	var query shared.ShipmentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	filter := query.Filter()
	shipments, total, err := h.ShipmentService.ListForSeller(sellerID, filter)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, shipments, response.NewPagination(filter.Page, filter.PageSize, total))
}

// GetShipment 运单详情
func (h *Handler) GetShipment(c *gin.Context) {
	shipment, ok := h.ownedShipment(c)
	if !ok {
		return
	}
	response.Success(c, shipment)
}

// Timeline 运单事件时间线（最新在前）
func (h *Handler) Timeline(c *gin.Context) {
	shipment, ok := h.ownedShipment(c)
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

// CancelShipment 取消运单
func (h *Handler) CancelShipment(c *gin.Context) {
	sellerID, ok := shared.AccountID(c)
	if !ok {
		return
	}
	shipment, err := h.ShipmentService.Cancel(c.Request.Context(), c.Param("id"), sellerID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, shipment)
}

// AddTag 添加标签
func (h *Handler) AddTag(c *gin.Context) {
	shipment, ok := h.ownedShipment(c)
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
	shipment, ok := h.ownedShipment(c)
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

func (h *Handler) ownedShipment(c *gin.Context) (*models.Shipment, bool) {
	sellerID, ok := shared.AccountID(c)
	if !ok {
		return nil, false
	}
	shipment, err := h.ShipmentService.GetForSeller(c.Param("id"), sellerID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return nil, false
	}
	return shipment, true
}
