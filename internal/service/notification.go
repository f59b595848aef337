package service

import (
	"context"
	"strings"
	"time"

	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/metrics"
	"github.com/fastship-next/internal/queue"
)

// EmailMessage 待发送邮件
type EmailMessage struct {
	TaskType   string
	Recipients []string
	Subject    string
	Body       string
	Context    map[string]string
}

// SMSMessage 待发送短信
type SMSMessage struct {
	Phone      string
	Body       string
	ShipmentID string
}

// NotificationDispatcher 通知投递接口，实现需保证不阻塞调用方
type NotificationDispatcher interface {
	DispatchEmail(ctx context.Context, msg EmailMessage) error
	DispatchSMS(ctx context.Context, msg SMSMessage) error
}

// QueueDispatcher 通过 asynq 队列异步投递
type QueueDispatcher struct {
	client *queue.Client
}

// NewQueueDispatcher 创建队列投递器
func NewQueueDispatcher(client *queue.Client) *QueueDispatcher {
	return &QueueDispatcher{client: client}
}

// DispatchEmail 入队邮件任务
func (d *QueueDispatcher) DispatchEmail(_ context.Context, msg EmailMessage) error {
	taskType := msg.TaskType
	if taskType == "" {
		taskType = queue.TaskShipmentStatusEmail
	}
	return d.client.EnqueueEmail(taskType, queue.EmailPayload{
		Recipients: msg.Recipients,
		Subject:    msg.Subject,
		Body:       msg.Body,
		Context:    msg.Context,
	})
}

// DispatchSMS 入队短信任务
func (d *QueueDispatcher) DispatchSMS(_ context.Context, msg SMSMessage) error {
	return d.client.EnqueueSMS(queue.SMSPayload{
		Phone:      msg.Phone,
		Body:       msg.Body,
		ShipmentID: msg.ShipmentID,
	})
}

// InlineDispatcher 未启用队列时在后台 goroutine 中直接发送
type InlineDispatcher struct {
	email   *EmailService
	sms     *SMSService
	timeout time.Duration
}

// NewInlineDispatcher 创建直发投递器
func NewInlineDispatcher(email *EmailService, sms *SMSService) *InlineDispatcher {
	return &InlineDispatcher{email: email, sms: sms, timeout: 30 * time.Second}
}

// DispatchEmail 后台发送邮件
func (d *InlineDispatcher) DispatchEmail(_ context.Context, msg EmailMessage) error {
	if !d.email.Enabled() {
		logger.Debugw("notify_email_skipped", "reason", "email_disabled", "subject", msg.Subject)
		return nil
	}
	go func() {
		if err := d.email.SendEmail(msg.Recipients, msg.Subject, msg.Body); err != nil {
			logger.Warnw("notify_email_send_failed", "subject", msg.Subject, "error", err)
		}
	}()
	return nil
}

// DispatchSMS 后台发送短信
func (d *InlineDispatcher) DispatchSMS(_ context.Context, msg SMSMessage) error {
	if !d.sms.Enabled() {
		logger.Debugw("notify_sms_skipped", "reason", "sms_disabled", "shipment_id", msg.ShipmentID)
		return nil
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sms.Send(ctx, msg.Phone, msg.Body, msg.ShipmentID); err != nil {
			logger.Warnw("notify_sms_send_failed", "shipment_id", msg.ShipmentID, "error", err)
		}
	}()
	return nil
}

// outbox 事务提交后待投递的通知
type outbox struct {
	emails []EmailMessage
	sms    []SMSMessage
}

func (o *outbox) addEmail(msg EmailMessage) {
	o.emails = append(o.emails, msg)
}

func (o *outbox) addSMS(msg SMSMessage) {
	if strings.TrimSpace(msg.Phone) == "" {
		return
	}
	o.sms = append(o.sms, msg)
}

// flush 投递全部通知；失败只记录日志与指标，不向调用方返回
func (o *outbox) flush(ctx context.Context, dispatcher NotificationDispatcher, m *metrics.Metrics, shipmentID string) {
	if o == nil || dispatcher == nil {
		return
	}
	for _, msg := range o.sms {
		if err := dispatcher.DispatchSMS(ctx, msg); err != nil {
			m.NotifyEnqueueFailed(constants.NotifyChannelSMS)
			logger.Warnw("shipment_notify_enqueue_failed",
				"channel", constants.NotifyChannelSMS,
				"shipment_id", shipmentID,
				"error", err,
			)
		}
	}
	for _, msg := range o.emails {
		if err := dispatcher.DispatchEmail(ctx, msg); err != nil {
			m.NotifyEnqueueFailed(constants.NotifyChannelEmail)
			logger.Warnw("shipment_notify_enqueue_failed",
				"channel", constants.NotifyChannelEmail,
				"shipment_id", shipmentID,
				"subject", msg.Subject,
				"error", err,
			)
		}
	}
}
