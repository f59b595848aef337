package constants

// 运单状态常量
const (
	ShipmentStatusPlaced         = "placed"
	ShipmentStatusInTransit      = "in_transit"
	ShipmentStatusOutForDelivery = "out_for_delivery"
	ShipmentStatusDelivered      = "delivered"
	ShipmentStatusCancelled      = "cancelled"
)

// ShipmentStatuses 全部运单状态
var ShipmentStatuses = []string{
	ShipmentStatusPlaced,
	ShipmentStatusInTransit,
	ShipmentStatusOutForDelivery,
	ShipmentStatusDelivered,
	ShipmentStatusCancelled,
}

// 运单标签常量（封闭集合）
const (
	TagExpress               = "express"
	TagStandard              = "standard"
	TagFragile               = "fragile"
	TagHeavy                 = "heavy"
	TagInternational         = "international"
	TagDomestic              = "domestic"
	TagTemperatureControlled = "temperature_controlled"
	TagGift                  = "gift"
	TagReturn                = "return"
	TagDocuments             = "documents"
)

// TagNames 全部合法标签
var TagNames = []string{
	TagExpress,
	TagStandard,
	TagFragile,
	TagHeavy,
	TagInternational,
	TagDomestic,
	TagTemperatureControlled,
	TagGift,
	TagReturn,
	TagDocuments,
}

// 账号角色常量
const (
	RoleSeller  = "seller"
	RolePartner = "partner"
)

// 令牌用途
const (
	TokenPurposeReview      = "review"
	TokenPurposeEmailVerify = "email_verify"
)

// 队列常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskShipmentStatusEmail = "shipment:status_email"
	TaskShipmentSMS         = "shipment:sms"
	TaskAccountVerifyEmail  = "account:verify_email"
)

// 通知渠道
const (
	NotifyChannelEmail = "email"
	NotifyChannelSMS   = "sms"
)

// 上下文键
const (
	ContextKeyAccountID   = "account_id"
	ContextKeyAccountRole = "account_role"
	ContextKeyTokenID     = "token_id"
	ContextKeyClaims      = "access_claims"
)
