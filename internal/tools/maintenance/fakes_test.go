package maintenance

import "context"

type fakeStore struct {
	markAllNotified   func(ctx context.Context) (int64, error)
	deleteCollected   func(ctx context.Context) (int64, error)
	deleteJobsByOwner func(ctx context.Context, ownerID string) (int64, error)
}

func (f *fakeStore) MarkAllNotified(ctx context.Context) (int64, error) {
	return f.markAllNotified(ctx)
}

func (f *fakeStore) DeleteCollectedJobs(ctx context.Context) (int64, error) {
	return f.deleteCollected(ctx)
}

func (f *fakeStore) DeleteJobsByOwner(ctx context.Context, ownerID string) (int64, error) {
	return f.deleteJobsByOwner(ctx, ownerID)
}
