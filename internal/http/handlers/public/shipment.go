package public

import (
	"strconv"

	"github.com/fastship-next/internal/http/handlers/shared"
	"github.com/fastship-next/internal/http/response"
	"github.com/fastship-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SubmitReviewRequest 评价提交请求
type SubmitReviewRequest struct {
	Token   string `json:"token" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// TrackShipment 公开追踪运单
func (h *Handler) TrackShipment(c *gin.Context) {
	summary, err := h.ShipmentService.Track(c.Request.Context(), c.Param("id"))
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, summary)
}

// SubmitReview 凭评价邀请令牌提交评价
func (h *Handler) SubmitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	review, err := h.ShipmentService.SubmitReview(service.SubmitReviewInput{
		Token:   req.Token,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Created(c, review)
}

// RegisterLocation 幂等登记邮编
func (h *Handler) RegisterLocation(c *gin.Context) {
	zip, ok := parseZipParam(c)
	if !ok {
		return
	}
	location, err := h.LocationService.GetOrCreate(zip)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, location)
}

// PartnersServicing 查询可配送指定邮编的配送员
func (h *Handler) PartnersServicing(c *gin.Context) {
	zip, ok := parseZipParam(c)
	if !ok {
		return
	}
	partners, err := h.PartnerService.PartnersServicing(zip)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, partners)
}

func parseZipParam(c *gin.Context) (uint, bool) {
	zip, err := strconv.ParseUint(c.Param("zip"), 10, 32)
	if err != nil {
		shared.RespondServiceError(c, service.ErrInvalidZipCode)
		return 0, false
	}
	return uint(zip), true
}
