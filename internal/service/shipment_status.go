package service

import (
	"fmt"

	"github.com/fastship-next/internal/constants"
)

// partnerTransitions 配送员可执行的状态流转；cancelled 仅能由卖家取消进入
var partnerTransitions = map[string][]string{
	constants.ShipmentStatusPlaced: {
		constants.ShipmentStatusPlaced,
		constants.ShipmentStatusInTransit,
		constants.ShipmentStatusOutForDelivery,
	},
	constants.ShipmentStatusInTransit: {
		constants.ShipmentStatusInTransit,
		constants.ShipmentStatusOutForDelivery,
	},
	constants.ShipmentStatusOutForDelivery: {
		constants.ShipmentStatusInTransit,
		constants.ShipmentStatusOutForDelivery,
		constants.ShipmentStatusDelivered,
	},
}

func isTerminalStatus(status string) bool {
	return status == constants.ShipmentStatusDelivered || status == constants.ShipmentStatusCancelled
}

func isKnownStatus(status string) bool {
	for _, s := range constants.ShipmentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// checkPartnerTransition 校验配送员发起的状态流转
func checkPartnerTransition(from, to string) error {
	if !isKnownStatus(to) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	for _, allowed := range partnerTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// DescribeStatus 未提供描述时按状态生成事件描述
func DescribeStatus(status string, location uint) string {
	switch status {
	case constants.ShipmentStatusPlaced:
		return "assigned delivery partner"
	case constants.ShipmentStatusOutForDelivery:
		return "shipment out for delivery"
	case constants.ShipmentStatusDelivered:
		return "successfully delivered"
	case constants.ShipmentStatusCancelled:
		return "cancelled by seller"
	case constants.ShipmentStatusInTransit:
		return fmt.Sprintf("scanned at %d", location)
	default:
		return fmt.Sprintf("status updated to %s", status)
	}
}
