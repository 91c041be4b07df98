package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/tuneboard/tuneboard/internal/models"
)

func init() {
	// Force HTTP/1.1 for WSS connections to prevent HTTP/2 ALPN negotiation.
	// WebSocket upgrade requires HTTP/1.1 semantics which fail under HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// schemaSQL initializes the job table. Entries are write-once, so the only
// index needed is the primary record ID.
const schemaSQL = `
DEFINE TABLE IF NOT EXISTS job SCHEMALESS;
DEFINE FIELD IF NOT EXISTS created_at ON job TYPE datetime;
`

// SurrealConfig holds SurrealDB connection configuration.
type SurrealConfig struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
}

// Surreal is a durable Job Store backed by SurrealDB. Selecting it keeps job
// handles recoverable across process restarts.
type Surreal struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	cfg    SurrealConfig
	logger logger.Logger
}

var _ JobStore = (*Surreal)(nil)

// jobRecord is the SurrealDB representation of a JobStoreEntry.
type jobRecord struct {
	ID        surrealmodels.RecordID `json:"id"`
	Request   models.JobRequest      `json:"request"`
	Handle    models.JobHandle       `json:"handle"`
	CreatedAt time.Time              `json:"created_at"`
}

func (r jobRecord) entry() models.JobStoreEntry {
	return models.JobStoreEntry{
		Request:   r.Request,
		Handle:    r.Handle,
		CreatedAt: r.CreatedAt,
	}
}

// NewSurreal connects to SurrealDB with an auto-reconnecting WebSocket and
// initializes the job schema.
func NewSurreal(ctx context.Context, cfg SurrealConfig, log *slog.Logger) (*Surreal, error) {
	var sdkLogger logger.Logger
	if log != nil {
		sdkLogger = logger.New(log.Handler())
	} else {
		sdkLogger = logger.New(slog.Default().Handler())
	}

	// surrealcbor handles SurrealDB's custom CBOR tags.
	codec := surrealcbor.New()

	// gorillaws requires the URL without the /rpc suffix (it adds it internally).
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			ws := gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			})
			return ws, nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	if cfg.AuthLevel == "database" {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Namespace: cfg.Namespace,
			Database:  cfg.Database,
			Username:  cfg.Username,
			Password:  cfg.Password,
		})
	} else {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}

	if _, err := surrealdb.Query[any](ctx, db, schemaSQL, nil); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("init schema: %w", err)
	}

	sdkLogger.Info("SurrealDB job store ready")
	return &Surreal{conn: conn, db: db, cfg: cfg, logger: sdkLogger}, nil
}

// Close closes the SurrealDB connection.
func (s *Surreal) Close(ctx context.Context) error {
	s.logger.Info("closing SurrealDB connection")
	return s.conn.Close(ctx)
}

// Put creates the job record, rejecting duplicate IDs.
func (s *Surreal) Put(ctx context.Context, entry models.JobStoreEntry) error {
	_, err := surrealdb.Query[[]jobRecord](ctx, s.db, `
		CREATE type::record("job", $id) CONTENT {
			request: $request,
			handle: $handle,
			created_at: $created_at
		}
	`, map[string]any{
		"id":         entry.Request.ID,
		"request":    entry.Request,
		"handle":     entry.Handle,
		"created_at": entry.CreatedAt,
	})
	if err != nil {
		return wrapQueryError(err, entry.Request.ID)
	}
	return nil
}

// Get returns the job record for an ID.
func (s *Surreal) Get(ctx context.Context, id string) (models.JobStoreEntry, error) {
	results, err := surrealdb.Query[[]jobRecord](ctx, s.db, `
		SELECT * FROM type::record("job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return models.JobStoreEntry{}, fmt.Errorf("get job: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return models.JobStoreEntry{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return (*results)[0].Result[0].entry(), nil
}

// List returns all job records, most recently created first.
func (s *Surreal) List(ctx context.Context) ([]models.JobStoreEntry, error) {
	results, err := surrealdb.Query[[]jobRecord](ctx, s.db, `
		SELECT * FROM job ORDER BY created_at DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	entries := make([]models.JobStoreEntry, 0, len((*results)[0].Result))
	for _, rec := range (*results)[0].Result {
		entries = append(entries, rec.entry())
	}
	return entries, nil
}

// wrapQueryError maps SurrealDB query errors onto store sentinels.
func wrapQueryError(err error, id string) error {
	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) && strings.Contains(queryErr.Message, "already exists") {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, id)
	}
	return fmt.Errorf("put job: %w", err)
}
