package domain

import "context"

// JobService is the remote worker that performs the transform and mixing.
// It runs a single outstanding job; PollStatus always reports the latest one.
type JobService interface {
	SubmitJob(ctx context.Context, req JobRequest) error
	PollStatus(ctx context.Context) (JobStatus, error)
	UploadSource(ctx context.Context, slot SlotID, filename string, data []byte) error
	FetchChannelView(ctx context.Context, slot SlotID, channel Channel) (Image, error)
}

// SourceStore keeps the raw bytes of uploaded source images.
type SourceStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	// Delete removes key; a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
