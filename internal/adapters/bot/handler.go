package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"giveaway-bot/internal/domain"
	"giveaway-bot/internal/infra/metrics"
)

const (
	startReply       = "Wassssssup"
	startButtonLabel = "Create Giveaway"
	videoFileIDKey   = "promo:video:file_id"
)

// Handler обслуживает команды из полл-фида.
type Handler struct {
	bot      *tgbotapi.BotAPI
	log      zerolog.Logger
	cache    domain.Cache
	appURL   string
	videoSrc string
}

// NewHandler создаёт обработчик команд.
func NewHandler(bot *tgbotapi.BotAPI, log zerolog.Logger, cache domain.Cache, appURL, videoSrc string) *Handler {
	return &Handler{bot: bot, log: log, cache: cache, appURL: appURL, videoSrc: videoSrc}
}

// HandleMessage обрабатывает входящее сообщение.
func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(msg.Chat.ID)
	}
}

func (h *Handler) handleStart(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(startButtonLabel, h.appURL),
		),
	)

	if h.videoSrc != "" {
		if h.sendPromoVideo(chatID, keyboard) {
			return
		}
		// Видео не ушло — откатываемся на текстовый ответ.
	}

	reply := tgbotapi.NewMessage(chatID, startReply)
	reply.ReplyMarkup = keyboard
	start := time.Now()
	_, err := h.bot.Send(reply)
	metrics.ObserveNetworkRequest("telegram_bot", "send_message", start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: ответ на /start")
	}
}

// sendPromoVideo отправляет промо-видео. Первая отправка заливает файл и
// кэширует выданный file_id, дальше переиспользуется кэш.
func (h *Handler) sendPromoVideo(chatID int64, keyboard tgbotapi.InlineKeyboardMarkup) bool {
	video := tgbotapi.NewVideo(chatID, h.videoFile())
	video.Caption = startReply
	video.ReplyMarkup = keyboard

	start := time.Now()
	sent, err := h.bot.Send(video)
	metrics.ObserveNetworkRequest("telegram_bot", "send_video", start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: отправка промо-видео")
		return false
	}
	if h.cache != nil && sent.Video != nil && sent.Video.FileID != "" {
		if err := h.cache.Set(videoFileIDKey, []byte(sent.Video.FileID), 0); err != nil {
			h.log.Warn().Err(err).Msg("bot: кэширование file_id видео")
		}
	}
	return true
}

func (h *Handler) videoFile() tgbotapi.RequestFileData {
	if h.cache != nil {
		if cached, err := h.cache.Get(videoFileIDKey); err == nil && len(cached) > 0 {
			return tgbotapi.FileID(string(cached))
		}
	}
	if strings.HasPrefix(h.videoSrc, "http://") || strings.HasPrefix(h.videoSrc, "https://") {
		return tgbotapi.FileURL(h.videoSrc)
	}
	return tgbotapi.FilePath(h.videoSrc)
}
