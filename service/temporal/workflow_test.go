package temporal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"
)

func TestConfirmPendingWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		input          ConfirmPendingInput
		mockActivities func(listMock, confirmMock *testsuite.MockCallWrapper)
		expectedError  bool
		validateResult func(*testing.T, *ConfirmPendingResult)
	}{
		{
			name:  "confirms highest-fee batch",
			input: ConfirmPendingInput{BatchSize: 2},
			mockActivities: func(listMock, confirmMock *testsuite.MockCallWrapper) {
				listMock.Return(&ListTopPendingResult{
					TransactionIDs: []string{"tx-1", "tx-2"},
					TotalPending:   5,
				}, nil)
				confirmMock.Return(&ConfirmBatchResult{
					Confirmed: 2,
				}, nil)
			},
			expectedError: false,
			validateResult: func(t *testing.T, result *ConfirmPendingResult) {
				assert.Equal(t, 2, result.Confirmed)
				assert.Equal(t, 3, result.Remaining)
				assert.Nil(t, result.Error)
			},
		},
		{
			name:  "empty mempool short-circuits",
			input: ConfirmPendingInput{BatchSize: 10},
			mockActivities: func(listMock, confirmMock *testsuite.MockCallWrapper) {
				listMock.Return(&ListTopPendingResult{
					TransactionIDs: []string{},
					TotalPending:   0,
				}, nil)
				// ConfirmBatch should NOT be called when there is nothing pending
			},
			expectedError: false,
			validateResult: func(t *testing.T, result *ConfirmPendingResult) {
				assert.Equal(t, 0, result.Confirmed)
				assert.Equal(t, 0, result.Remaining)
				assert.Nil(t, result.Error)
			},
		},
		{
			name:  "list pending fails",
			input: ConfirmPendingInput{BatchSize: 5},
			mockActivities: func(listMock, confirmMock *testsuite.MockCallWrapper) {
				listMock.Return(nil, errors.New("database error"))
				// ConfirmBatch should NOT be called
			},
			expectedError: true,
			validateResult: func(t *testing.T, result *ConfirmPendingResult) {
				// When workflow errors, the result might be partially populated
			},
		},
		{
			name:  "confirm batch fails",
			input: ConfirmPendingInput{BatchSize: 5},
			mockActivities: func(listMock, confirmMock *testsuite.MockCallWrapper) {
				listMock.Return(&ListTopPendingResult{
					TransactionIDs: []string{"tx-1"},
					TotalPending:   1,
				}, nil)
				confirmMock.Return(nil, errors.New("database error"))
			},
			expectedError: true,
			validateResult: func(t *testing.T, result *ConfirmPendingResult) {
				// The workflow records what it can before failing
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestWorkflowEnvironment()

			// Register activities first (before mocking)
			activities := &Activities{}
			env.RegisterActivity(activities.ListTopPending)
			env.RegisterActivity(activities.ConfirmBatch)

			listMock := env.OnActivity(activities.ListTopPending, mock.Anything, mock.Anything)
			confirmMock := env.OnActivity(activities.ConfirmBatch, mock.Anything, mock.Anything)

			tt.mockActivities(listMock, confirmMock)

			env.ExecuteWorkflow(ConfirmPendingWorkflow, tt.input)

			if tt.expectedError {
				assert.Error(t, env.GetWorkflowError())

				var result ConfirmPendingResult
				env.GetWorkflowResult(&result)
				tt.validateResult(t, &result)
			} else {
				assert.NoError(t, env.GetWorkflowError())

				var result ConfirmPendingResult
				err := env.GetWorkflowResult(&result)
				assert.NoError(t, err)
				tt.validateResult(t, &result)
			}
		})
	}
}

func TestConfirmPendingWorkflow_ActivityRetries(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.ListTopPending)
	env.RegisterActivity(activities.ConfirmBatch)

	// ListTopPending fails twice then succeeds
	callCount := 0
	env.OnActivity(activities.ListTopPending, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		callCount++
		if callCount < 3 {
			panic("transient error") // Temporal retries on panics
		}
	}).Return(&ListTopPendingResult{
		TransactionIDs: []string{"tx-1"},
		TotalPending:   1,
	}, nil)

	env.OnActivity(activities.ConfirmBatch, mock.Anything, mock.Anything).
		Return(&ConfirmBatchResult{Confirmed: 1}, nil)

	env.ExecuteWorkflow(ConfirmPendingWorkflow, ConfirmPendingInput{BatchSize: 1})

	assert.NoError(t, env.GetWorkflowError())

	var result ConfirmPendingResult
	err := env.GetWorkflowResult(&result)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Confirmed)
	assert.Equal(t, 3, callCount)
}
