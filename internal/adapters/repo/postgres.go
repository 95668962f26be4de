package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"giveaway-bot/internal/domain"
	"giveaway-bot/internal/infra/metrics"
)

// Postgres ведёт аудиторский журнал событий: историю членства бота в каналах
// и сырые события бустов. Журнал — необязательный компонент, быстрые пути
// живут в Redis.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.EventJournal = (*Postgres)(nil)

// NewPostgres создаёт адаптер журнала.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// RecordChannelEvent сохраняет событие членства бота в канале.
func (p *Postgres) RecordChannelEvent(ctx context.Context, event domain.ChannelEvent, channelID int64) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO channel_events (id, kind, source, channel_id, actor_id, title, username, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, uuid.NewString(), string(event.Kind), string(event.Source), channelID, event.ActorID, event.Title, event.Username, time.Now().UTC())
	metrics.ObserveNetworkRequest("postgres", "channel_events_insert", start, err)
	return err
}

// RecordBoostEvent сохраняет срез аудиторской записи буста.
func (p *Postgres) RecordBoostEvent(ctx context.Context, record domain.BoostRecord) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var payload []byte
	if record.RawPayload != nil {
		payload = record.RawPayload
	} else if data, err := json.Marshal(record); err == nil {
		payload = data
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO boost_events (id, boost_id, channel_id, user_id, status, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, uuid.NewString(), record.BoostID, record.ChannelID, record.UserID, string(record.Status), payload, time.Now().UTC())
	metrics.ObserveNetworkRequest("postgres", "boost_events_insert", start, err)
	return err
}
