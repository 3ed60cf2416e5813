// Package mocks provides shared test doubles for the store and service
// interfaces.
//
// Store mocks are built on testify's mock.Mock and their WithTx methods
// return the mock itself, so expectations set up front also apply inside a
// transaction. Service mocks use function fields with default return values,
// which keeps handler tests short:
//
//	svc := &mocks.MockQueueService{
//	    BuildFn: func(ctx context.Context, userID uuid.UUID, f queue.Filter) (*queue.Result, error) {
//	        return &queue.Result{Items: []*domain.CardState{}}, nil
//	    },
//	}
package mocks
