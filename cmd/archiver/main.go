// cmd/archiver/main.go is an asynchronous worker that pops completed-lobby
// result records from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/HikaruHotta/password-service/internal/archive"
)

// ArchiverService drains the results queue into the lobby_results table,
// batching inserts to keep write amplification down.
type ArchiverService struct {
	redisClient *redis.Client
	db          *pgxpool.Pool
	queueName   string
	batchSize   int
	flushDelay  time.Duration

	batchMu  sync.Mutex
	batch    []archive.LobbyResultRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewArchiverService constructs an ArchiverService from environment
// variables or defaults.
func NewArchiverService() *ArchiverService {
	batchSize := getEnvInt("ARCHIVER_BATCH_SIZE", 20)
	flushMs := getEnvInt("ARCHIVER_FLUSH_MS", 500)

	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &ArchiverService{
		redisClient: rdb,
		queueName:   getEnv("RESULTS_QUEUE_NAME", archive.DefaultQueueName),
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		batch:       make([]archive.LobbyResultRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects to the database, ensures the schema, and starts the queue
// reader. Blocks until Stop.
func (as *ArchiverService) Run() {
	as.connectDB()
	if err := as.ensureSchema(); err != nil {
		log.Fatalf("schema: %v", err)
	}

	go as.readRedisLoop()

	log.Println("password-archiver service started.")
	<-as.ctx.Done()
	as.flushBatchToDB()
	log.Println("password-archiver shutting down.")
}

func (as *ArchiverService) connectDB() {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Fatalf("unable to parse pgx config: %v", err)
	}
	as.db, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("unable to create pgx pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := as.db.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}
}

func (as *ArchiverService) ensureSchema() error {
	_, err := as.db.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS lobby_results (
			lobby_id     UUID PRIMARY KEY,
			host_id      UUID NOT NULL,
			player_count INT NOT NULL,
			turn_count   INT NOT NULL,
			scores       JSONB NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// readRedisLoop continuously BLPops result records, accumulating them in a
// batch that flushes on size or on the ticker.
func (as *ArchiverService) readRedisLoop() {
	ticker := time.NewTicker(as.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-as.ctx.Done():
			return

		case <-ticker.C:
			as.flushBatchToDB()

		default:
			// BLPop with a short timeout so context cancellation is handled.
			res, err := as.redisClient.BLPop(as.ctx, 3*time.Second, as.queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if as.ctx.Err() != nil {
					return
				}
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record archive.LobbyResultRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid result record: %v\n", err)
				continue
			}
			as.appendToBatch(record)
		}
	}
}

func (as *ArchiverService) appendToBatch(record archive.LobbyResultRecord) {
	as.batchMu.Lock()
	defer as.batchMu.Unlock()

	as.batch = append(as.batch, record)
	if len(as.batch) >= as.batchSize {
		as.flushBatchLocked()
	}
}

func (as *ArchiverService) flushBatchToDB() {
	as.batchMu.Lock()
	defer as.batchMu.Unlock()
	as.flushBatchLocked()
}

// flushBatchLocked writes the current batch in a single transaction.
// Caller holds batchMu.
func (as *ArchiverService) flushBatchLocked() {
	if len(as.batch) == 0 {
		return
	}
	batchCopy := make([]archive.LobbyResultRecord, len(as.batch))
	copy(batchCopy, as.batch)
	as.batch = as.batch[:0]

	ctx := context.Background()
	err := beginTxFunc(ctx, as.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertResultTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertResultTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flush batch: %v\n", err)
	} else {
		log.Printf("Flushed %d lobby results to DB.\n", len(batchCopy))
	}
}

// insertResultTx upserts one lobby result row. Re-delivered records are
// idempotent.
func insertResultTx(ctx context.Context, tx pgx.Tx, rec archive.LobbyResultRecord) error {
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO lobby_results (
			lobby_id, host_id, player_count, turn_count, scores, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (lobby_id) DO NOTHING
	`
	_, err = tx.Exec(ctx, q,
		rec.LobbyID, rec.HostID, rec.PlayerCount, rec.TurnCount, scores,
		time.UnixMilli(rec.CompletedAt).UTC(),
	)
	return err
}

// beginTxFunc starts a transaction on the pool, calls f, and commits or
// rolls back as needed.
func beginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}

// Stop gracefully stops the archiver.
func (as *ArchiverService) Stop() {
	as.cancelFn()
}

func main() {
	as := NewArchiverService()
	go as.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	as.Stop()
	log.Println("Archiver shutdown complete.")
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer environment variable or returns a default.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
