// Package sweeper runs background verification over every stored chain.
package sweeper

import "context"

// Sweeper defines the interface for a background sweep loop
type Sweeper interface {
	// Start begins the sweeper's main loop
	// This is a blocking call that runs until the context is canceled
	Start(ctx context.Context) error

	// Stop gracefully stops the sweeper
	// This should wait for any in-progress work to complete
	Stop(ctx context.Context) error
}
