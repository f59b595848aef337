package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/provider"
	"github.com/fastship-next/internal/queue"
	"github.com/fastship-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskShipmentStatusEmail, c.countTask(queue.TaskShipmentStatusEmail, c.handleEmail))
	mux.HandleFunc(queue.TaskAccountVerifyEmail, c.countTask(queue.TaskAccountVerifyEmail, c.handleEmail))
	mux.HandleFunc(queue.TaskShipmentSMS, c.countTask(queue.TaskShipmentSMS, c.handleSMS))
}

func (c *Consumer) countTask(taskType string, handler asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		err := handler(ctx, task)
		c.Metrics.WorkerTask(taskType, err)
		return err
	}
}

func (c *Consumer) handleEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.DecodeEmailPayload(task)
	if err != nil {
		logger.Warnw("worker_email_unmarshal_failed", "task", task.Type(), "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if len(payload.Recipients) == 0 {
		logger.Debugw("worker_email_skip_empty_recipients", "task", task.Type(), "subject", payload.Subject)
		return nil
	}
	if !c.EmailService.Enabled() {
		logger.Warnw("worker_email_skip_service_disabled", "task", task.Type(), "subject", payload.Subject)
		return nil
	}
	if err := c.EmailService.SendEmail(payload.Recipients, payload.Subject, payload.Body); err != nil {
		logger.Warnw("worker_email_send_failed",
			"task", task.Type(),
			"subject", payload.Subject,
			"shipment_id", payload.Context["shipment_id"],
			"error", err,
		)
		if errors.Is(err, service.ErrInvalidEmail) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	logger.Debugw("worker_email_sent", "task", task.Type(), "recipients", len(payload.Recipients))
	return nil
}

func (c *Consumer) handleSMS(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_sms_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.DecodeSMSPayload(task)
	if err != nil {
		logger.Warnw("worker_sms_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.Phone == "" {
		logger.Debugw("worker_sms_skip_empty_phone", "shipment_id", payload.ShipmentID)
		return nil
	}
	if !c.SMSService.Enabled() {
		logger.Warnw("worker_sms_skip_service_disabled", "shipment_id", payload.ShipmentID)
		return nil
	}
	if err := c.SMSService.Send(ctx, payload.Phone, payload.Body, payload.ShipmentID); err != nil {
		logger.Warnw("worker_sms_send_failed", "shipment_id", payload.ShipmentID, "error", err)
		if errors.Is(err, service.ErrInvalidPhone) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	return nil
}
