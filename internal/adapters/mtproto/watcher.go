package mtproto

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"giveaway-bot/internal/domain"
)

// EventSink принимает события членства бота в каналах.
type EventSink func(ctx context.Context, event domain.ChannelEvent)

// Watcher держит живую MTProto-подписку и транслирует изменения участников
// каналов в доменные события. Это push-источник: события, пришедшие во
// время простоя подписки, теряются и добираются полл-фидом.
type Watcher struct {
	client *telegram.Client
	log    zerolog.Logger
	token  string
	botID  int64
	sink   EventSink
}

// NewWatcher создаёт MTProto клиент с диспетчером обновлений.
func NewWatcher(apiID int, apiHash, botToken, sessionFile string, log zerolog.Logger, sink EventSink) (*Watcher, error) {
	botID, err := botIDFromToken(botToken)
	if err != nil {
		return nil, err
	}
	w := &Watcher{log: log, token: botToken, botID: botID, sink: sink}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnChannelParticipant(w.onChannelParticipant)
	w.client = telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: sessionFile},
		UpdateHandler:  dispatcher,
	})
	return w, nil
}

// Run подключается, авторизует бота и блокируется до отмены контекста.
func (w *Watcher) Run(ctx context.Context) error {
	return w.client.Run(ctx, func(ctx context.Context) error {
		status, err := w.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("статус авторизации: %w", err)
		}
		if !status.Authorized {
			if _, err := w.client.Auth().Bot(ctx, w.token); err != nil {
				return fmt.Errorf("авторизация бота: %w", err)
			}
		}
		self, err := w.client.Self(ctx)
		if err != nil {
			return fmt.Errorf("получение собственного профиля: %w", err)
		}
		w.log.Info().Int64("bot_id", self.ID).Str("username", self.Username).Msg("mtproto: подписка активна")
		<-ctx.Done()
		return ctx.Err()
	})
}

func (w *Watcher) onChannelParticipant(ctx context.Context, e tg.Entities, update *tg.UpdateChannelParticipant) error {
	if update.UserID != w.botID {
		return nil
	}

	event := domain.ChannelEvent{
		Source:    domain.SourcePush,
		ChannelID: update.ChannelID,
		ActorID:   update.ActorID,
	}
	if channel, ok := e.Channels[update.ChannelID]; ok {
		event.Title = channel.Title
		event.Username = channel.Username
		event.HasMeta = true
	}

	if participantJoined(update) {
		event.Kind = domain.ChannelEventAdded
	} else {
		event.Kind = domain.ChannelEventRemoved
	}

	w.log.Debug().
		Int64("channel", update.ChannelID).
		Int64("actor", update.ActorID).
		Str("kind", string(event.Kind)).
		Msg("mtproto: событие участника")
	w.sink(ctx, event)
	return nil
}

// participantJoined определяет по паре prev/new, оказался ли бот в канале.
func participantJoined(update *tg.UpdateChannelParticipant) bool {
	participant, ok := update.GetNewParticipant()
	if !ok {
		return false
	}
	switch participant.(type) {
	case *tg.ChannelParticipantLeft:
		return false
	case *tg.ChannelParticipantBanned:
		return false
	default:
		return true
	}
}

func botIDFromToken(token string) (int64, error) {
	idPart, _, found := strings.Cut(token, ":")
	if !found {
		return 0, errors.New("некорректный формат токена бота")
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректный идентификатор в токене: %w", err)
	}
	return id, nil
}
