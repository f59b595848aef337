package repository

// ShipmentListFilter 查询运单列表的过滤条件
type ShipmentListFilter struct {
	Page              int
	PageSize          int
	SellerID          string
	DeliveryPartnerID string
	Status            string
	Destination       uint
}
