package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// ConfirmPendingWorkflow is the Temporal workflow that advances pending
// transactions to CONFIRMED. It is triggered by a Temporal schedule at the
// block interval, mimicking block production: each run takes the
// highest-fee pending transactions, up to the configured batch size, and
// confirms them.
//
// The workflow performs these steps:
// 1. List the top pending transaction ids (ListTopPending activity)
// 2. Confirm them and publish settlement events (ConfirmBatch activity)
// 3. Return a summary of the sweep
func ConfirmPendingWorkflow(ctx workflow.Context, input ConfirmPendingInput) (*ConfirmPendingResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("ConfirmPendingWorkflow started", "batch_size", input.BatchSize)

	result := &ConfirmPendingResult{
		SweepTime: workflow.Now(ctx),
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	// Step 1: select the highest-fee pending transactions
	var listResult *ListTopPendingResult
	err := workflow.ExecuteActivity(ctx, a.ListTopPending, ListTopPendingInput{Limit: input.BatchSize}).Get(ctx, &listResult)
	if err != nil {
		errMsg := fmt.Sprintf("failed to list pending transactions: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to list pending transactions: %w", err)
	}

	if len(listResult.TransactionIDs) == 0 {
		logger.Info("no pending transactions to confirm")
		result.Remaining = 0
		return result, nil
	}

	logger.Info("selected pending transactions for confirmation",
		"selected", len(listResult.TransactionIDs),
		"total_pending", listResult.TotalPending,
	)

	// Step 2: confirm the batch
	var confirmResult *ConfirmBatchResult
	err = workflow.ExecuteActivity(ctx, a.ConfirmBatch, ConfirmBatchInput{TransactionIDs: listResult.TransactionIDs}).Get(ctx, &confirmResult)
	if err != nil {
		errMsg := fmt.Sprintf("failed to confirm batch: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to confirm batch: %w", err)
	}

	result.Confirmed = confirmResult.Confirmed
	result.Remaining = listResult.TotalPending - confirmResult.Confirmed

	logger.Info("ConfirmPendingWorkflow completed successfully",
		"confirmed", result.Confirmed,
		"remaining", result.Remaining,
	)

	return result, nil
}
