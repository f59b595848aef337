package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fastship"

// Metrics 生命周期指标；nil 接收者上的方法均为空操作
type Metrics struct {
	shipmentsCreated     prometheus.Counter
	assignmentFailures   prometheus.Counter
	transitions          *prometheus.CounterVec
	notifyEnqueueFailure *prometheus.CounterVec
	workerTasks          *prometheus.CounterVec
}

// New 创建并注册指标
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		shipmentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipments_created_total",
			Help:      "Shipments successfully created and assigned.",
		}),
		assignmentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_failures_total",
			Help:      "Shipment creations rejected because no partner had spare capacity.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipment_transitions_total",
			Help:      "Accepted shipment status transitions by target status.",
		}, []string{"status"}),
		notifyEnqueueFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_enqueue_failures_total",
			Help:      "Notifications that could not be handed to the dispatcher.",
		}, []string{"channel"}),
		workerTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_tasks_total",
			Help:      "Notification tasks processed by the worker.",
		}, []string{"task", "result"}),
	}
	for _, c := range []prometheus.Collector{m.shipmentsCreated, m.assignmentFailures, m.transitions, m.notifyEnqueueFailure, m.workerTasks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ShipmentCreated 记录运单创建
func (m *Metrics) ShipmentCreated() {
	if m == nil {
		return
	}
	m.shipmentsCreated.Inc()
}

// AssignmentFailed 记录分配失败
func (m *Metrics) AssignmentFailed() {
	if m == nil {
		return
	}
	m.assignmentFailures.Inc()
}

// Transition 记录状态流转
func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// NotifyEnqueueFailed 记录通知入队失败
func (m *Metrics) NotifyEnqueueFailed(channel string) {
	if m == nil {
		return
	}
	m.notifyEnqueueFailure.WithLabelValues(channel).Inc()
}

// WorkerTask 记录 worker 任务结果
func (m *Metrics) WorkerTask(task string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.workerTasks.WithLabelValues(task, result).Inc()
}
