package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	botcmd "giveaway-bot/internal/adapters/bot"
	"giveaway-bot/internal/adapters/mtproto"
	"giveaway-bot/internal/adapters/repo"
	"giveaway-bot/internal/adapters/telegram"
	"giveaway-bot/internal/domain"
	"giveaway-bot/internal/infra/cache"
	"giveaway-bot/internal/infra/config"
	"giveaway-bot/internal/infra/db"
	apphttp "giveaway-bot/internal/infra/http"
	applog "giveaway-bot/internal/infra/log"
	"giveaway-bot/internal/infra/metrics"
	"giveaway-bot/internal/infra/queue"
	"giveaway-bot/internal/usecase/boosts"
	"giveaway-bot/internal/usecase/onboarding"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("bot: не указан токен Telegram (TG_BOT_TOKEN)")
	}

	rdb, err := db.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: нет подключения к Redis")
	}
	defer rdb.Close()

	storage := repo.NewRedis(rdb)
	dedupCache := cache.NewRedis(rdb)

	var journal domain.EventJournal
	if cfg.PGDSN != "" {
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("bot: нет подключения к БД журнала")
		}
		defer pool.Close()
		journal = repo.NewPostgres(pool)
		logger.Info().Msg("bot: аудиторский журнал включён")
	}

	var publisher domain.EventPublisher
	if cfg.RabbitURL != "" {
		rabbit, err := queue.NewRabbitPublisher(cfg.RabbitURL, cfg.Queues.ChannelEvents)
		if err != nil {
			logger.Fatal().Err(err).Msg("bot: не удалось подключиться к RabbitMQ")
		}
		defer rabbit.Close()
		publisher = rabbit
		logger.Info().Str("queue", cfg.Queues.ChannelEvents).Msg("bot: публикация интеграционных событий включена")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: не удалось создать клиента Bot API")
	}
	logger.Info().Str("username", botAPI.Self.UserName).Msg("bot: авторизован в Bot API")

	gateway := telegram.NewClient(botAPI, logger.With().Str("component", "gateway").Logger())

	onboardingSvc := onboarding.NewService(
		storage,
		storage,
		gateway,
		dedupCache,
		journal,
		publisher,
		logger.With().Str("component", "onboarding").Logger(),
		cfg.Policy.AllowPrivate,
	)
	boostSvc := boosts.NewService(storage, journal, logger.With().Str("component", "boosts").Logger())
	commands := botcmd.NewHandler(
		botAPI,
		logger.With().Str("component", "commands").Logger(),
		dedupCache,
		cfg.Promo.AppURL,
		cfg.Promo.VideoPath,
	)

	botID := botAPI.Self.ID
	feed := telegram.NewUpdateFeed(botAPI, logger.With().Str("component", "feed").Logger(), telegram.Handlers{
		OnMessage: commands.HandleMessage,
		OnMyChatMember: func(ctx context.Context, upd tgbotapi.ChatMemberUpdated) {
			event, ok := telegram.ChannelEventFromChatMember(upd, botID)
			if !ok {
				return
			}
			if err := onboardingSvc.HandleEvent(ctx, event); err != nil {
				logger.Error().Err(err).Int64("channel", upd.Chat.ID).Msg("bot: обработка my_chat_member")
			}
		},
		OnChatBoost: func(ctx context.Context, upd telegram.ChatBoostUpdated) {
			if err := boostSvc.HandleBoost(ctx, telegram.BoostEventFromUpdate(upd)); err != nil && !errors.Is(err, boosts.ErrIncompleteEvent) {
				logger.Error().Err(err).Str("boost_id", upd.Boost.BoostID).Msg("bot: обработка chat_boost")
			}
		},
		OnRemovedChatBoost: func(ctx context.Context, upd telegram.ChatBoostRemoved) {
			if err := boostSvc.HandleBoostRemoved(ctx, telegram.BoostEventFromRemoval(upd)); err != nil && !errors.Is(err, boosts.ErrIncompleteEvent) {
				logger.Error().Err(err).Str("boost_id", upd.BoostID).Msg("bot: обработка removed_chat_boost")
			}
		},
	}, cfg.Poll.TimeoutSec, time.Duration(cfg.Poll.RetryDelaySec)*time.Second)

	watcher, err := mtproto.NewWatcher(
		cfg.Telegram.APIID,
		cfg.Telegram.APIHash,
		cfg.Telegram.Token,
		cfg.MTProto.SessionFile,
		logger.With().Str("component", "mtproto").Logger(),
		func(ctx context.Context, event domain.ChannelEvent) {
			if err := onboardingSvc.HandleEvent(ctx, event); err != nil {
				logger.Error().Err(err).Int64("channel", event.ChannelID).Msg("bot: обработка push-события")
			}
		},
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: не удалось создать MTProto клиента")
	}

	health := apphttp.NewServer(logger.With().Str("component", "health").Logger(), fmt.Sprintf(":%d", cfg.Port))
	go func() {
		if err := health.Start(); err != nil {
			logger.Error().Err(err).Msg("bot: health сервер остановлен")
		}
	}()

	go feed.Run(ctx)

	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			// Системный сбой подписки фатален: частично живой процесс хуже мёртвого.
			logger.Fatal().Err(err).Msg("bot: MTProto подписка завершилась с ошибкой")
		}
	}()

	logger.Info().Msg("bot: запущен")
	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := health.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("bot: остановка health сервера")
	}
	logger.Info().Msg("bot: остановлен")
}
