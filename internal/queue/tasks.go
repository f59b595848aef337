package queue

import (
	"encoding/json"
	"fmt"

	"github.com/fastship-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskShipmentStatusEmail 运单状态邮件任务
	TaskShipmentStatusEmail = constants.TaskShipmentStatusEmail
	// TaskShipmentSMS 运单短信任务
	TaskShipmentSMS = constants.TaskShipmentSMS
	// TaskAccountVerifyEmail 账号邮箱验证邮件任务
	TaskAccountVerifyEmail = constants.TaskAccountVerifyEmail
)

// EmailPayload 邮件任务载荷，内容在入队前已渲染完成
type EmailPayload struct {
	Recipients []string          `json:"recipients"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Context    map[string]string `json:"context,omitempty"`
}

// SMSPayload 短信任务载荷
type SMSPayload struct {
	Phone      string `json:"phone"`
	Body       string `json:"body"`
	ShipmentID string `json:"shipment_id,omitempty"`
}

// NewEmailTask 创建邮件任务
func NewEmailTask(taskType string, payload EmailPayload) (*asynq.Task, error) {
	switch taskType {
	case TaskShipmentStatusEmail, TaskAccountVerifyEmail:
	default:
		return nil, fmt.Errorf("unsupported email task type: %s", taskType)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}

// NewSMSTask 创建短信任务
func NewSMSTask(payload SMSPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskShipmentSMS, body), nil
}

// DecodeEmailPayload 解析邮件任务载荷
func DecodeEmailPayload(task *asynq.Task) (EmailPayload, error) {
	var payload EmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// DecodeSMSPayload 解析短信任务载荷
func DecodeSMSPayload(task *asynq.Task) (SMSPayload, error) {
	var payload SMSPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
