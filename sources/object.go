package sources

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"

	"github.com/sysuresh/datapipe"
)

// ObjectLister is the subset of *minio.Client this source uses.
type ObjectLister interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Object is a finite leaf source over an S3/MinIO bucket listing. Items
// are minio.ObjectInfo values in lexical key order; the position is the
// count of objects seen plus the last key, which resumes via the
// listing API's StartAfter parameter without re-walking the prefix.
//
// The listing stream is bound to an internal context so it can span
// many Next calls; Reset, reload, and Close cancel it. Objects added or
// removed under the prefix between record and reload shift the effective
// position, which is inherent to key-ordered resumption.
type Object struct {
	client ObjectLister
	bucket string
	prefix string
	name   datapipe.Name

	ch      <-chan minio.ObjectInfo
	cancel  context.CancelFunc
	lastKey string
	count   int64
	done    bool
}

// NewObject creates a leaf listing bucket under prefix. The client is
// borrowed, not owned.
func NewObject(name datapipe.Name, client ObjectLister, bucket, prefix string) *Object {
	return &Object{name: name, client: client, bucket: bucket, prefix: prefix}
}

// Next implements the Source interface.
func (o *Object) Next(ctx context.Context) (minio.ObjectInfo, bool, error) {
	if o.done {
		return minio.ObjectInfo{}, false, nil
	}
	if o.ch == nil {
		o.openListing()
	}
	select {
	case info, ok := <-o.ch:
		if !ok {
			o.done = true
			o.stopListing()
			return minio.ObjectInfo{}, false, nil
		}
		if info.Err != nil {
			return minio.ObjectInfo{}, false, fmt.Errorf("source %q: %w", o.name, info.Err)
		}
		o.lastKey = info.Key
		o.count++
		return info, true, nil
	case <-ctx.Done():
		return minio.ObjectInfo{}, false, ctx.Err()
	}
}

func (o *Object) openListing() {
	listCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.ch = o.client.ListObjects(listCtx, o.bucket, minio.ListObjectsOptions{
		Prefix:     o.prefix,
		Recursive:  true,
		StartAfter: o.lastKey,
	})
}

func (o *Object) stopListing() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.ch = nil
}

// Reset implements the Source interface.
func (o *Object) Reset() error {
	o.stopListing()
	o.lastKey = ""
	o.count = 0
	o.done = false
	return nil
}

// RecordPosition implements the Source interface.
func (o *Object) RecordPosition(_ context.Context, t *datapipe.Tape, _ datapipe.Mode) error {
	t.Append(o.count)
	t.Append(o.lastKey)
	t.Append(o.done)
	return nil
}

// ReloadPosition implements the Source interface. The listing restarts
// lazily from the recorded key on the next pull.
func (o *Object) ReloadPosition(_ context.Context, t *datapipe.Tape, _ datapipe.Mode) error {
	count, err := t.ReadInt()
	if err != nil {
		return fmt.Errorf("source %q: %w", o.name, err)
	}
	lastKey, err := t.ReadString()
	if err != nil {
		return fmt.Errorf("source %q: %w", o.name, err)
	}
	done, err := t.ReadBool()
	if err != nil {
		return fmt.Errorf("source %q: %w", o.name, err)
	}
	if count < 0 {
		return fmt.Errorf("source %q: %w: negative object count %d", o.name, datapipe.ErrPositionMismatch, count)
	}
	o.stopListing()
	o.count = count
	o.lastKey = lastKey
	o.done = done
	return nil
}

// Infinite implements the Source interface.
func (*Object) Infinite() bool {
	return false
}

// Name returns the name of this source.
func (o *Object) Name() datapipe.Name {
	return o.name
}

// Close cancels any in-flight listing. The client is borrowed and stays
// open.
func (o *Object) Close() error {
	o.stopListing()
	return nil
}
