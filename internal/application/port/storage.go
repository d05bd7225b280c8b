package port

import "context"

// ObjectStorage stores claim documents and exposes them by public URL
type ObjectStorage interface {
	// Upload writes content at path inside the bucket. Existing objects are never overwritten.
	Upload(ctx context.Context, path string, content []byte) error
	PublicURL(path string) string
	Delete(ctx context.Context, path string) error
}

// StagedFile is a document held locally until it reaches object storage
type StagedFile struct {
	Name    string
	Content []byte
}

// StagingArea keeps submitted files per claim so failed uploads can be retried
type StagingArea interface {
	Stage(ctx context.Context, claimID string, files []StagedFile) error
	Load(ctx context.Context, claimID string) ([]StagedFile, error)
	Clear(ctx context.Context, claimID string) error
}
