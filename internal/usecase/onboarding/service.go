package onboarding

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"giveaway-bot/internal/domain"
	"giveaway-bot/internal/infra/metrics"
)

// Текст отказа для приватных каналов, отправляется добавившему в личку.
const privateChannelReply = "Извините, но я могу работать только с публичными каналами. " +
	"Пожалуйста, сделайте канал публичным и добавьте меня снова."

// Окно подавления повторов одного события из двух источников.
const dedupTTL = time.Minute

// Service — машина состояний членства бота в каналах. Оба источника событий
// (живая MTProto-подписка и полл-фид) сходятся в один идемпотентный переход
// по каноничному идентификатору канала; точно-однократная доставка не
// предполагается ни для одного из них.
type Service struct {
	membership   domain.MembershipRepo
	meta         domain.ChannelMetaRepo
	gateway      domain.ChannelGateway
	cache        domain.Cache
	journal      domain.EventJournal
	publisher    domain.EventPublisher
	log          zerolog.Logger
	allowPrivate bool
}

// NewService создаёт реконсилер. journal и publisher могут быть nil —
// соответствующие шаги тогда пропускаются.
func NewService(
	membership domain.MembershipRepo,
	meta domain.ChannelMetaRepo,
	gateway domain.ChannelGateway,
	cache domain.Cache,
	journal domain.EventJournal,
	publisher domain.EventPublisher,
	log zerolog.Logger,
	allowPrivate bool,
) *Service {
	return &Service{
		membership:   membership,
		meta:         meta,
		gateway:      gateway,
		cache:        cache,
		journal:      journal,
		publisher:    publisher,
		log:          log,
		allowPrivate: allowPrivate,
	}
}

// HandleEvent принимает событие любого источника и доводит леджер до
// согласованного состояния.
func (s *Service) HandleEvent(ctx context.Context, event domain.ChannelEvent) error {
	metrics.IncChannelEvent(string(event.Source), string(event.Kind))
	switch event.Kind {
	case domain.ChannelEventAdded:
		return s.handleAdded(ctx, event)
	case domain.ChannelEventRemoved:
		return s.handleRemoved(ctx, event)
	default:
		s.log.Warn().Str("kind", string(event.Kind)).Msg("onboarding: неизвестный вид события")
		return nil
	}
}

func dedupKey(channelID int64) string {
	return fmt.Sprintf("reconcile:added:%d", channelID)
}

func (s *Service) handleAdded(ctx context.Context, event domain.ChannelEvent) error {
	channelID := domain.NormalizeChannelID(event.ChannelID)
	if s.cache == nil {
		return s.reconcileAdded(ctx, channelID, event)
	}
	// Подавление дублей между источниками — только оптимизация: сам переход
	// идемпотентен, при сбое ключ снимается для повторной попытки, а
	// удаление бота из канала сбрасывает его досрочно.
	return s.cache.Once(dedupKey(channelID), dedupTTL, func() error {
		return s.reconcileAdded(ctx, channelID, event)
	})
}

func (s *Service) reconcileAdded(ctx context.Context, channelID int64, event domain.ChannelEvent) error {
	start := time.Now()
	defer func() {
		metrics.ReconcileSeconds.Observe(time.Since(start).Seconds())
	}()

	info, err := s.gateway.Chat(ctx, channelID)
	if err != nil {
		if !event.HasMeta {
			return fmt.Errorf("резолв канала %d: %w", channelID, err)
		}
		// Источник принёс метаданные вместе с событием — продолжаем на них.
		s.log.Warn().Err(err).Int64("channel", channelID).Msg("onboarding: getChat не удался, используем данные события")
		info = domain.ChannelInfo{ID: channelID, Title: event.Title, Username: event.Username}
	}

	if info.Username == "" && !s.allowPrivate {
		return s.rejectPrivate(ctx, channelID, info.Title, event.ActorID)
	}

	// Дальше — независимые best-effort шаги: сбой одного логируется и не
	// прерывает остальные, следующее событие добавления повторит всё заново.
	if err := s.meta.SaveTitle(ctx, channelID, info.Title); err != nil {
		s.log.Error().Err(err).Int64("channel", channelID).Msg("onboarding: сохранение title")
	}
	if err := s.meta.SaveUsername(ctx, channelID, info.Username); err != nil {
		s.log.Error().Err(err).Int64("channel", channelID).Msg("onboarding: сохранение username")
	}

	url := s.resolveURL(ctx, channelID, info)
	if err := s.meta.SaveURL(ctx, channelID, url); err != nil {
		s.log.Error().Err(err).Int64("channel", channelID).Msg("onboarding: сохранение url")
	}

	s.saveAvatars(ctx, channelID, info)

	for _, adminID := range s.resolveAdmins(ctx, channelID) {
		if err := s.membership.AddChannelForUser(ctx, adminID, channelID); err != nil {
			s.log.Error().Err(err).Int64("admin", adminID).Int64("channel", channelID).Msg("onboarding: привязка админа")
			continue
		}
		s.log.Info().Int64("admin", adminID).Int64("channel", channelID).Msg("onboarding: канал привязан админу")
	}

	// Добавивший получает привязку независимо от прав в канале.
	if event.ActorID != 0 {
		if err := s.membership.AddChannelForUser(ctx, event.ActorID, channelID); err != nil {
			s.log.Error().Err(err).Int64("user", event.ActorID).Int64("channel", channelID).Msg("onboarding: привязка инициатора")
		}
	}

	s.journalChannelEvent(ctx, event, channelID)
	if s.publisher != nil {
		record := domain.ChannelRecord{ID: channelID, Title: info.Title, Username: info.Username, URL: url}
		if err := s.publisher.PublishChannelOnboarded(ctx, record, event.ActorID); err != nil {
			s.log.Error().Err(err).Int64("channel", channelID).Msg("onboarding: публикация события подключения")
		}
	}

	s.log.Info().
		Int64("channel", channelID).
		Str("title", info.Title).
		Int64("added_by", event.ActorID).
		Str("source", string(event.Source)).
		Msg("onboarding: бот добавлен в канал")
	return nil
}

// rejectPrivate реализует жёсткую политику: приватные каналы не
// подключаются — бот выходит и уведомляет добавившего, ничего не сохраняя.
func (s *Service) rejectPrivate(ctx context.Context, channelID int64, title string, actorID int64) error {
	metrics.ChannelRejectedTotal.Inc()
	if err := s.gateway.Leave(ctx, channelID); err != nil {
		s.log.Error().Err(err).Int64("channel", channelID).Msg("onboarding: выход из приватного канала")
	}
	if actorID != 0 {
		if err := s.gateway.SendMessage(ctx, actorID, privateChannelReply); err != nil {
			s.log.Error().Err(err).Int64("user", actorID).Msg("onboarding: уведомление об отказе")
		}
	}
	s.log.Warn().Int64("channel", channelID).Str("title", title).Msg("onboarding: бот покинул приватный канал")
	return nil
}

// resolveURL строит каноничный URL канала. Для публичного — прямая ссылка,
// иначе трёхступенчатый фолбэк по инвайт-ссылкам; первая удача побеждает.
// Полный провал не фатален: сохраняется пустая строка.
func (s *Service) resolveURL(ctx context.Context, channelID int64, info domain.ChannelInfo) string {
	if info.Username != "" {
		return "https://t.me/" + info.Username
	}
	if info.InviteLink != "" {
		return info.InviteLink
	}
	if link, err := s.gateway.CreateInviteLink(ctx, channelID); err == nil && link != "" {
		return link
	} else if err != nil {
		s.log.Warn().Err(err).Int64("channel", channelID).Msg("onboarding: создание инвайт-ссылки")
	}
	if link, err := s.gateway.ExportInviteLink(ctx, channelID); err == nil && link != "" {
		return link
	} else if err != nil {
		s.log.Warn().Err(err).Int64("channel", channelID).Msg("onboarding: экспорт инвайт-ссылки")
	}
	s.log.Warn().Int64("channel", channelID).Msg("onboarding: URL канала не резолвится, сохраняем пустой")
	return ""
}

// saveAvatars резолвит и сохраняет маленький и большой аватар независимо:
// отсутствие одного не блокирует другой.
func (s *Service) saveAvatars(ctx context.Context, channelID int64, info domain.ChannelInfo) {
	if info.PhotoSmallID != "" {
		if url, err := s.gateway.FileURL(ctx, info.PhotoSmallID); err != nil {
			s.log.Warn().Err(err).Int64("channel", channelID).Msg("onboarding: резолв маленького аватара")
		} else if err := s.meta.SavePhotoSmall(ctx, channelID, url); err != nil {
			s.log.Error().Err(err).Int64("channel", channelID).Msg("onboarding: сохранение маленького аватара")
		}
	}
	if info.PhotoBigID != "" {
		if url, err := s.gateway.FileURL(ctx, info.PhotoBigID); err != nil {
			s.log.Warn().Err(err).Int64("channel", channelID).Msg("onboarding: резолв большого аватара")
		} else if err := s.meta.SavePhotoBig(ctx, channelID, url); err != nil {
			s.log.Error().Err(err).Int64("channel", channelID).Msg("onboarding: сохранение большого аватара")
		}
	}
}

// resolveAdmins возвращает администраторов и создателя канала. Пустой список
// значит «неизвестно», по нему никогда не удаляются существующие привязки.
func (s *Service) resolveAdmins(ctx context.Context, channelID int64) []int64 {
	admins, err := s.gateway.Admins(ctx, channelID)
	if err != nil {
		s.log.Error().Err(err).Int64("channel", channelID).Msg("onboarding: получение админов")
		return nil
	}
	return admins
}

func (s *Service) handleRemoved(ctx context.Context, event domain.ChannelEvent) error {
	channelID := domain.NormalizeChannelID(event.ChannelID)

	// Сброс окна подавления: повторное добавление сразу после удаления
	// должно пройти полную реконсиляцию, а не проглотиться дедупликацией.
	if s.cache != nil {
		if err := s.cache.Del(dedupKey(channelID)); err != nil {
			s.log.Warn().Err(err).Int64("channel", channelID).Msg("onboarding: сброс ключа дедупликации")
		}
	}

	users, err := s.membership.UsersWithChannel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("обратный поиск по каналу %d: %w", channelID, err)
	}
	for _, userID := range users {
		if err := s.membership.RemoveChannelForUser(ctx, userID, channelID); err != nil {
			s.log.Error().Err(err).Int64("user", userID).Int64("channel", channelID).Msg("onboarding: отвязка канала")
		}
	}

	s.journalChannelEvent(ctx, event, channelID)
	if s.publisher != nil {
		if err := s.publisher.PublishChannelRemoved(ctx, channelID); err != nil {
			s.log.Error().Err(err).Int64("channel", channelID).Msg("onboarding: публикация события удаления")
		}
	}

	s.log.Info().
		Int64("channel", channelID).
		Int64("removed_by", event.ActorID).
		Int("users", len(users)).
		Str("source", string(event.Source)).
		Msg("onboarding: бот удалён из канала")
	return nil
}

func (s *Service) journalChannelEvent(ctx context.Context, event domain.ChannelEvent, channelID int64) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordChannelEvent(ctx, event, channelID); err != nil {
		s.log.Error().Err(err).Int64("channel", channelID).Msg("onboarding: запись в журнал")
	}
}
