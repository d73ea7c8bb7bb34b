package gpu

// OpenQueue opens a queue on the given device of the registered backend.
// Closing the returned queue also closes the context created for it.
func OpenQueue(deviceIndex int) (Queue, error) {
	backend := getBackend()
	if backend == nil {
		return nil, ErrNoBackend
	}

	if !backend.Available() {
		return nil, ErrBackendUnavailable
	}

	ctx, err := backend.NewContext(deviceIndex)
	if err != nil {
		return nil, err
	}

	q, err := ctx.NewQueue()
	if err != nil {
		_ = ctx.Close()
		return nil, err
	}

	return &ownedQueue{Queue: q, ctx: ctx}, nil
}

// ownedQueue closes its context together with the queue.
type ownedQueue struct {
	Queue
	ctx Context
}

func (q *ownedQueue) Close() error {
	firstErr := q.Queue.Close()
	if err := q.ctx.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
