package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore implements Store on a NATS JetStream Object Store bucket.
type NATSStore struct {
	nc     *nats.Conn
	bucket jetstream.ObjectStore
}

var _ Store = (*NATSStore)(nil)

const (
	headerContentType  = "Content-Type"
	headerCacheControl = "Cache-Control"
)

// NewNATSStore connects to NATS and ensures the object store bucket
// exists.
func NewNATSStore(url, bucket string) (*NATSStore, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:  bucket,
		Storage: jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure object store bucket %s: %w", bucket, err)
	}

	return &NATSStore{nc: nc, bucket: store}, nil
}

func (s *NATSStore) Put(ctx context.Context, key string, obj Object) error {
	meta := jetstream.ObjectMeta{
		Name:    key,
		Headers: nats.Header{},
	}
	if obj.ContentType != "" {
		meta.Headers.Set(headerContentType, obj.ContentType)
	}
	if obj.CacheControl != "" {
		meta.Headers.Set(headerCacheControl, obj.CacheControl)
	}

	if _, err := s.bucket.Put(ctx, meta, bytes.NewReader(obj.Data)); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *NATSStore) Get(ctx context.Context, key string) (Object, error) {
	data, err := s.bucket.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return Object{}, ErrNotExist
		}
		return Object{}, fmt.Errorf("failed to get object %s: %w", key, err)
	}

	obj := Object{Data: data}
	if info, err := s.bucket.GetInfo(ctx, key); err == nil && info.Headers != nil {
		obj.ContentType = info.Headers.Get(headerContentType)
		obj.CacheControl = info.Headers.Get(headerCacheControl)
	}

	return obj, nil
}

func (s *NATSStore) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
