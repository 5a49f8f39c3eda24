package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue all billing jobs run on.
	QueueDefault = "default"
	// TaskOverdueScan moves sent invoices past their due date to overdue.
	TaskOverdueScan = "billing:overdue_scan"
)

// OverdueScanPayload scopes one overdue scan. A zero AsOf means the
// time the task runs.
type OverdueScanPayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// NewOverdueScanTask builds the scan task.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, data), nil
}
