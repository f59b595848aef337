package service

import (
	"fmt"
	"strings"

	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/queue"
)

const (
	subjectShipped   = "Your Order is Shipped"
	subjectArriving  = "Your Order is Arriving Soon"
	subjectDelivered = "Your Order is Delivered"
	subjectCancelled = "Your Order is Cancelled"
)

// statusNotice 状态通知所需的上下文
type statusNotice struct {
	Shipment    *models.Shipment
	SellerName  string
	PartnerName string
	Code        string
	ReviewURL   string
}

// buildStatusNotifications 根据目标状态生成通知；in_transit 等状态不通知
func buildStatusNotifications(status string, notice statusNotice) *outbox {
	box := &outbox{}
	shipment := notice.Shipment
	if shipment == nil || strings.TrimSpace(shipment.ClientContactEmail) == "" {
		return box
	}
	recipients := []string{shipment.ClientContactEmail}
	sellerName := fallback(notice.SellerName, "FastShip")

	switch status {
	case constants.ShipmentStatusPlaced:
		partnerName := fallback(notice.PartnerName, "Delivery Partner")
		box.addEmail(EmailMessage{
			TaskType:   queue.TaskShipmentStatusEmail,
			Recipients: recipients,
			Subject:    subjectShipped,
			Body: fmt.Sprintf("Good news! %s has shipped your order %s.\n\nIt will be delivered by %s. Estimated delivery: %s.",
				sellerName, shipment.ID, partnerName, shipment.EstimatedDelivery.Format("2006-01-02")),
			Context: map[string]string{"seller": sellerName, "partner": partnerName},
		})
	case constants.ShipmentStatusOutForDelivery:
		box.addSMS(SMSMessage{
			Phone:      shipment.ClientContactPhone,
			ShipmentID: shipment.ID,
			Body:       fmt.Sprintf("Your order is arriving soon! Share the %s code with your delivery executive to receive your package.", notice.Code),
		})
		box.addEmail(EmailMessage{
			TaskType:   queue.TaskShipmentStatusEmail,
			Recipients: recipients,
			Subject:    subjectArriving,
			Body: fmt.Sprintf("Your order %s is out for delivery.\n\nShare the verification code %s with your delivery executive to receive your package.",
				shipment.ID, notice.Code),
			Context: map[string]string{"verification_code": notice.Code},
		})
	case constants.ShipmentStatusDelivered:
		box.addEmail(EmailMessage{
			TaskType:   queue.TaskShipmentStatusEmail,
			Recipients: recipients,
			Subject:    subjectDelivered,
			Body: fmt.Sprintf("Your order %s from %s has been delivered.\n\nTell us how it went: %s",
				shipment.ID, sellerName, notice.ReviewURL),
			Context: map[string]string{"seller": sellerName, "review_url": notice.ReviewURL},
		})
	case constants.ShipmentStatusCancelled:
		box.addEmail(EmailMessage{
			TaskType:   queue.TaskShipmentStatusEmail,
			Recipients: recipients,
			Subject:    subjectCancelled,
			Body:       fmt.Sprintf("Your order %s from %s has been cancelled.", shipment.ID, sellerName),
			Context:    map[string]string{"seller": sellerName},
		})
	}
	return box
}

func fallback(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
