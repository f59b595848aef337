package shared

import (
	"strings"

	"github.com/fastship-next/internal/repository"
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// ShipmentListQuery 运单列表查询参数
type ShipmentListQuery struct {
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
	Status      string `form:"status"`
	Destination uint   `form:"destination"`
}

// Filter 转换为仓储层过滤条件
func (q ShipmentListQuery) Filter() repository.ShipmentListFilter {
	page, pageSize := NormalizePagination(q.Page, q.PageSize)
	return repository.ShipmentListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      strings.TrimSpace(q.Status),
		Destination: q.Destination,
	}
}
