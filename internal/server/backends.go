package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/socialnote/apiserver/config"
	"github.com/socialnote/apiserver/internal/db"
	"github.com/socialnote/apiserver/internal/events"
	"github.com/socialnote/apiserver/internal/mq"
	"github.com/socialnote/apiserver/internal/storage"
	"github.com/socialnote/apiserver/internal/store"
	"go.uber.org/zap"
)

type closeFunc func() error

func noopClose() error { return nil }

// OpenUserStore builds the user store on the configured document backend.
// The returned close function releases any connection the backend holds.
func OpenUserStore(ctx context.Context, cfg config.Config, log *zap.Logger) (*store.UserStore, closeFunc, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Store.Backend))

	switch backend {
	case config.StoreBackendMemory:
		log.Warn("using in-memory user store; data is lost on exit")
		return store.NewUserStore(store.NewMemoryBackend()), noopClose, nil

	case config.StoreBackendFile, "":
		log.Info("using file user store", zap.String("path", cfg.Store.FilePath))
		return store.NewUserStore(store.NewFileBackend(cfg.Store.FilePath)), noopClose, nil

	case config.StoreBackendPostgres:
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		log.Info("using postgres user store", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
		return store.NewUserStore(store.NewPostgresBackend(conn, store.DefaultDocumentName)), conn.Close, nil

	case config.StoreBackendMinio, config.StoreBackendGCS:
		objects, err := openObjectStorage(ctx, cfg, backend)
		if err != nil {
			return nil, nil, err
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure bucket %s: %w", objects.Bucket(), err)
		}
		log.Info("using object user store",
			zap.String("backend", backend),
			zap.String("bucket", objects.Bucket()),
			zap.String("key", cfg.Store.ObjectKey),
		)
		return store.NewUserStore(store.NewObjectBackend(objects, cfg.Store.ObjectKey)), noopClose, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openObjectStorage(ctx context.Context, cfg config.Config, backend string) (*storage.Storage, error) {
	if backend == config.StoreBackendMinio {
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return storage.NewStorage(client), nil
	}

	client, err := storage.NewGCSClient(ctx, cfg.GCS)
	if err != nil {
		return nil, fmt.Errorf("gcs: %w", err)
	}
	return storage.NewStorage(client), nil
}

// OpenQueue connects to the configured message broker. It returns nil when
// events are disabled.
func OpenQueue(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Events.Backend)) {
	case config.EventsBackendNone, "":
		return nil, nil
	case config.EventsBackendRabbitMQ:
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return mq.New(client), nil
	case config.EventsBackendPubSub:
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}

// newPublisher returns the event publisher for queue, or a no-op one.
func newPublisher(queue *mq.MQ, channel string) events.Publisher {
	if queue == nil {
		return events.NopPublisher{}
	}
	return events.NewMQPublisher(queue, channel)
}
