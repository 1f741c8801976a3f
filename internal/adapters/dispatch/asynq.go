package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/csg33k/alta-clientes/internal/domain"
)

// DeliveryTask is the asynq task type of one outgoing message.
const DeliveryTask = "delivery:send"

// DeliveryPayload is the task body. Each message of a split delivery is its
// own task, so retrying one half never resends the other.
type DeliveryPayload struct {
	ClientName string         `json:"client_name"`
	Message    domain.Message `json:"message"`
}

// Asynq enqueues deliveries on Redis for at-least-once processing.
type Asynq struct {
	client   *asynq.Client
	maxRetry int
}

func NewAsynq(client *asynq.Client, maxRetry int) *Asynq {
	return &Asynq{client: client, maxRetry: maxRetry}
}

// NewTask encodes a delivery task.
func NewTask(m domain.Message, clientName string) (*asynq.Task, error) {
	data, err := json.Marshal(DeliveryPayload{ClientName: clientName, Message: m})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(DeliveryTask, data), nil
}

// Dispatch satisfies ports.Dispatcher.
func (a *Asynq) Dispatch(ctx context.Context, m domain.Message, clientName string) error {
	task, err := NewTask(m, clientName)
	if err != nil {
		return err
	}
	info, err := a.client.EnqueueContext(ctx, task, asynq.MaxRetry(a.maxRetry), asynq.TaskID(m.ID))
	if err != nil {
		return fmt.Errorf("enqueue delivery %s: %w", m.Label(), err)
	}
	slog.Info("delivery queued", "client", clientName, "part", m.Label(), "task_id", info.ID, "queue", info.Queue)
	return nil
}

// Handler returns the worker mux that performs queued deliveries with send.
func Handler(send SendFunc) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(DeliveryTask, func(ctx context.Context, t *asynq.Task) error {
		var p DeliveryPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			// A payload that cannot be decoded will never succeed.
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
		return send(ctx, p.Message, p.ClientName)
	})
	return mux
}
