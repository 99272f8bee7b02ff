package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
)

// ConfirmationScheduleID identifies the single schedule driving the
// confirmation sweep. There is one per deployment.
const ConfirmationScheduleID = "confirm-pending-sweep"

// Client wraps the Temporal SDK client with the schedule operations the
// service needs.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// EnsureConfirmationSchedule creates or updates the schedule that runs the
// confirmation sweep every block interval. If the schedule already exists
// its interval and batch size are updated, otherwise it is created.
func (c *Client) EnsureConfirmationSchedule(ctx context.Context, interval time.Duration, batchSize int) error {
	c.logger.Debug("ensuring confirmation schedule",
		"schedule_id", ConfirmationScheduleID,
		"interval", interval,
		"batch_size", batchSize,
	)

	handle := c.client.ScheduleClient().GetHandle(ctx, ConfirmationScheduleID)
	_, err := handle.Describe(ctx)
	if err == nil {
		// Schedule exists, update interval and action arguments.
		err = handle.Update(ctx, client.ScheduleUpdateOptions{
			DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
				input.Description.Schedule.Spec.Intervals = []client.ScheduleIntervalSpec{
					{Every: interval},
				}
				input.Description.Schedule.Action = c.confirmationAction(batchSize)
				return &client.ScheduleUpdate{
					Schedule: &input.Description.Schedule,
				}, nil
			},
		})
		if err != nil {
			return fmt.Errorf("failed to update schedule %q: %w", ConfirmationScheduleID, err)
		}

		c.logger.Info("confirmation schedule updated",
			"schedule_id", ConfirmationScheduleID,
			"interval", interval,
			"batch_size", batchSize,
		)
		return nil
	}

	c.logger.Debug("schedule not found, creating new one",
		"schedule_id", ConfirmationScheduleID,
		"error", err,
	)

	_, err = c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: ConfirmationScheduleID,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{
				{Every: interval},
			},
		},
		Action: c.confirmationAction(batchSize),
		Memo: map[string]interface{}{
			"created_by": "walletsim",
			"interval":   interval.String(),
		},
	})
	if err != nil {
		c.logger.Error("failed to create schedule",
			"schedule_id", ConfirmationScheduleID,
			"error", err,
		)
		return fmt.Errorf("failed to create schedule %q: %w", ConfirmationScheduleID, err)
	}

	c.logger.Info("confirmation schedule created",
		"schedule_id", ConfirmationScheduleID,
		"interval", interval,
		"batch_size", batchSize,
	)

	return nil
}

// DeleteConfirmationSchedule removes the confirmation sweep schedule.
func (c *Client) DeleteConfirmationSchedule(ctx context.Context) error {
	handle := c.client.ScheduleClient().GetHandle(ctx, ConfirmationScheduleID)
	if err := handle.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete schedule %q: %w", ConfirmationScheduleID, err)
	}

	c.logger.Info("confirmation schedule deleted", "schedule_id", ConfirmationScheduleID)
	return nil
}

func (c *Client) confirmationAction(batchSize int) *client.ScheduleWorkflowAction {
	return &client.ScheduleWorkflowAction{
		ID:        "confirm-pending",
		Workflow:  "ConfirmPendingWorkflow",
		TaskQueue: c.taskQueue,
		Args: []interface{}{ConfirmPendingInput{
			BatchSize: batchSize,
		}},
	}
}

// SDKClient returns the underlying Temporal SDK client for direct workflow operations.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
