package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
)

// envelope is the wire form sent over NOTIFY. Origin lets an instance skip
// its own notifications when they come back through the listen loop.
type envelope struct {
	Origin string       `json:"origin"`
	Event  models.Event `json:"event"`
}

const (
	listenRetryDelay = 4 * time.Second
	listenMaxRetries = 10
)

// PGBridge fans events out across server instances via Postgres
// LISTEN/NOTIFY. Publish delivers to the local broker first, then fires
// pg_notify; the listen loop republishes notifications from other
// instances into the local broker.
type PGBridge struct {
	id      string
	pool    *pgxpool.Pool
	local   *Broker
	channel string
	log     logger.ILogger

	// session is one LISTEN connection lifetime; swapped out in tests.
	session    func(ctx context.Context) error
	retryDelay time.Duration
}

func NewPGBridge(pool *pgxpool.Pool, local *Broker, channel string, log logger.ILogger) *PGBridge {
	b := &PGBridge{
		id:         uuid.NewString(),
		pool:       pool,
		local:      local,
		channel:    channel,
		log:        log,
		retryDelay: listenRetryDelay,
	}
	b.session = b.listenOnce
	return b
}

func (b *PGBridge) Publish(ctx context.Context, ev models.Event) error {
	// Local listeners first: they never depend on the Postgres round trip.
	_ = b.local.Publish(ctx, ev)

	payload, err := json.Marshal(envelope{Origin: b.id, Event: ev})
	if err != nil {
		return &models.PublishError{Kind: ev.Kind, Err: err}
	}

	if _, err := b.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, b.channel, string(payload)); err != nil {
		b.log.Error("pg_notify failed", logger.String("kind", string(ev.Kind)), logger.Error(err))
		return &models.PublishError{Kind: ev.Kind, Err: err}
	}
	return nil
}

func (b *PGBridge) Subscribe(buffer int) *Subscription {
	return b.local.Subscribe(buffer)
}

// Listen forwards notifications from other instances into the local broker,
// reconnecting when the LISTEN connection drops. Gives up after
// listenMaxRetries consecutive short-lived sessions; the counter resets once
// a session holds for a minute. Returns nil once ctx is cancelled.
func (b *PGBridge) Listen(ctx context.Context) error {
	var retries int
	for {
		started := time.Now()
		err := b.session(ctx)
		if ctx.Err() != nil || err == nil {
			return nil
		}

		if time.Since(started) >= time.Minute {
			retries = 0
		}
		retries++
		if retries > listenMaxRetries {
			return err
		}

		b.log.Warning("listen connection lost, reconnecting",
			logger.Int("attempt", retries), logger.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.retryDelay):
		}
	}
}

// listenOnce holds a dedicated connection for one LISTEN session.
func (b *PGBridge) listenOnce(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return err
	}

	b.log.Info("listening for order events", logger.String("channel", b.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var env envelope
		if err := json.Unmarshal([]byte(n.Payload), &env); err != nil {
			b.log.Warning("discarding malformed notification payload", logger.Error(err))
			continue
		}
		if env.Origin == b.id {
			continue
		}

		_ = b.local.Publish(ctx, env.Event)
	}
}
