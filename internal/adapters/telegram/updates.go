package telegram

import (
	"context"
	"encoding/json"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"giveaway-bot/internal/infra/metrics"
)

// allowedUpdates перечисляет виды обновлений, которые тянет полл-фид.
// Бустовые обновления появились позже типизированной части библиотеки,
// поэтому конверт декодируется локально.
var allowedUpdates = []string{"message", "my_chat_member", "chat_boost", "removed_chat_boost"}

// Update — конверт обновления полл-фида.
type Update struct {
	UpdateID         int64                       `json:"update_id"`
	Message          *tgbotapi.Message           `json:"message,omitempty"`
	MyChatMember     *tgbotapi.ChatMemberUpdated `json:"my_chat_member,omitempty"`
	ChatBoost        *ChatBoostUpdated           `json:"chat_boost,omitempty"`
	RemovedChatBoost *ChatBoostRemoved           `json:"removed_chat_boost,omitempty"`
}

// ChatBoostUpdated описывает добавленный или продлённый буст.
type ChatBoostUpdated struct {
	Chat  tgbotapi.Chat `json:"chat"`
	Boost ChatBoost     `json:"boost"`
}

// ChatBoost — сам буст с источником.
type ChatBoost struct {
	BoostID        string          `json:"boost_id"`
	AddDate        int64           `json:"add_date"`
	ExpirationDate int64           `json:"expiration_date"`
	Source         ChatBoostSource `json:"source"`
}

// ChatBoostSource указывает, кто и как забустил канал.
type ChatBoostSource struct {
	Source string         `json:"source"`
	User   *tgbotapi.User `json:"user,omitempty"`
}

// ChatBoostRemoved описывает снятый буст.
type ChatBoostRemoved struct {
	Chat       tgbotapi.Chat   `json:"chat"`
	BoostID    string          `json:"boost_id"`
	RemoveDate int64           `json:"remove_date"`
	Source     ChatBoostSource `json:"source"`
}

// Handlers — обратные вызовы фида. nil-поля пропускают вид обновления.
type Handlers struct {
	OnMessage          func(ctx context.Context, msg *tgbotapi.Message)
	OnMyChatMember     func(ctx context.Context, upd tgbotapi.ChatMemberUpdated)
	OnChatBoost        func(ctx context.Context, upd ChatBoostUpdated)
	OnRemovedChatBoost func(ctx context.Context, upd ChatBoostRemoved)
}

// UpdateFeed — long-poll цикл getUpdates с оффсетом.
//
// Оффсет процесс-локальный и строго неубывающий: он продвигается для
// каждого увиденного обновления, включая некорректные, чтобы фид всегда
// двигался вперёд. Подтверждение серверу уходит со следующим запросом,
// поэтому необработанные, но увиденные обновления могут прийти повторно —
// все потребители идемпотентны.
type UpdateFeed struct {
	bot        *tgbotapi.BotAPI
	log        zerolog.Logger
	handlers   Handlers
	offset     int64
	timeout    int
	retryDelay time.Duration
}

// NewUpdateFeed создаёт фид.
func NewUpdateFeed(bot *tgbotapi.BotAPI, log zerolog.Logger, handlers Handlers, timeoutSec int, retryDelay time.Duration) *UpdateFeed {
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}
	return &UpdateFeed{
		bot:        bot,
		log:        log,
		handlers:   handlers,
		timeout:    timeoutSec,
		retryDelay: retryDelay,
	}
}

// Offset возвращает текущий локальный оффсет.
func (f *UpdateFeed) Offset() int64 {
	return f.offset
}

// Run крутит цикл опроса до отмены контекста.
func (f *UpdateFeed) Run(ctx context.Context) {
	f.log.Info().Int("timeout", f.timeout).Msg("feed: опрос обновлений запущен")
	for {
		if ctx.Err() != nil {
			f.log.Info().Msg("feed: опрос остановлен")
			return
		}
		raw, err := f.fetch()
		if err != nil {
			metrics.UpdateFeedErrors.Inc()
			f.log.Error().Err(err).Msg("feed: ошибка getUpdates")
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.retryDelay):
			}
			continue
		}
		for _, item := range raw {
			f.Dispatch(ctx, item)
		}
	}
}

func (f *UpdateFeed) fetch() ([]json.RawMessage, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("offset", f.offset)
	params.AddNonZero("timeout", f.timeout)
	if err := params.AddInterface("allowed_updates", allowedUpdates); err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := f.bot.MakeRequest("getUpdates", params)
	metrics.ObserveNetworkRequest("telegram_bot", "get_updates", start, err)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(resp.Result, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Dispatch продвигает оффсет и передаёт обновление обработчику.
// Некорректный конверт продвигает оффсет и отбрасывается с предупреждением.
func (f *UpdateFeed) Dispatch(ctx context.Context, raw json.RawMessage) {
	var upd Update
	if err := json.Unmarshal(raw, &upd); err != nil {
		var envelope struct {
			UpdateID int64 `json:"update_id"`
		}
		if json.Unmarshal(raw, &envelope) == nil {
			f.advance(envelope.UpdateID)
		}
		f.log.Warn().Err(err).Msg("feed: не удалось декодировать обновление")
		return
	}
	f.advance(upd.UpdateID)

	switch {
	case upd.Message != nil && f.handlers.OnMessage != nil:
		f.handlers.OnMessage(ctx, upd.Message)
	case upd.MyChatMember != nil && f.handlers.OnMyChatMember != nil:
		f.handlers.OnMyChatMember(ctx, *upd.MyChatMember)
	case upd.ChatBoost != nil && f.handlers.OnChatBoost != nil:
		f.handlers.OnChatBoost(ctx, *upd.ChatBoost)
	case upd.RemovedChatBoost != nil && f.handlers.OnRemovedChatBoost != nil:
		f.handlers.OnRemovedChatBoost(ctx, *upd.RemovedChatBoost)
	}
}

func (f *UpdateFeed) advance(updateID int64) {
	if next := updateID + 1; next > f.offset {
		f.offset = next
	}
}
