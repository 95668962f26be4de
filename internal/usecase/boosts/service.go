package boosts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"giveaway-bot/internal/domain"
	"giveaway-bot/internal/infra/metrics"
)

// ErrIncompleteEvent возвращается для событий без обязательных полей.
// Такие события отбрасываются без повтора.
var ErrIncompleteEvent = errors.New("событие буста неполное")

// Service ведёт идемпотентный леджер бустов: быстрый индекс
// «канал → бустеры» и аудиторские записи по boost_id. Повторная доставка
// одного события оставляет оба представления в том же состоянии.
type Service struct {
	repo    domain.BoostRepo
	journal domain.EventJournal
	log     zerolog.Logger
}

// NewService создаёт сервис бустов. journal может быть nil.
func NewService(repo domain.BoostRepo, journal domain.EventJournal, log zerolog.Logger) *Service {
	return &Service{repo: repo, journal: journal, log: log}
}

func (s *Service) validate(event domain.BoostEvent) error {
	if event.BoostID == "" || event.UserID == 0 || event.ChannelID == 0 {
		return ErrIncompleteEvent
	}
	return nil
}

// HandleBoost фиксирует добавленный буст: членство в множестве бустеров и
// аудиторская запись обновляются одним и тем же событием.
func (s *Service) HandleBoost(ctx context.Context, event domain.BoostEvent) error {
	if err := s.validate(event); err != nil {
		metrics.BoostEventsDropped.Inc()
		s.log.Warn().
			Str("boost_id", event.BoostID).
			Int64("channel", event.ChannelID).
			Int64("user", event.UserID).
			Msg("boosts: отброшено неполное событие")
		return err
	}
	channelID := domain.NormalizeChannelID(event.ChannelID)

	if err := s.repo.AddBoostUser(ctx, channelID, event.UserID); err != nil {
		return fmt.Errorf("добавление бустера: %w", err)
	}
	record := domain.BoostRecord{
		BoostID:    event.BoostID,
		ChannelID:  channelID,
		UserID:     event.UserID,
		AddDate:    event.AddDate,
		ExpireDate: event.ExpireDate,
		Status:     domain.BoostStatusActive,
		RawPayload: event.RawPayload,
	}
	if err := s.repo.UpsertBoost(ctx, record); err != nil {
		return fmt.Errorf("запись буста: %w", err)
	}
	s.journalBoost(ctx, record)
	metrics.IncBoostEvent("added")
	s.log.Info().
		Str("boost_id", event.BoostID).
		Int64("channel", channelID).
		Int64("user", event.UserID).
		Msg("boosts: буст зафиксирован")
	return nil
}

// HandleBoostRemoved фиксирует снятие буста.
func (s *Service) HandleBoostRemoved(ctx context.Context, event domain.BoostEvent) error {
	if err := s.validate(event); err != nil {
		metrics.BoostEventsDropped.Inc()
		s.log.Warn().
			Str("boost_id", event.BoostID).
			Int64("channel", event.ChannelID).
			Int64("user", event.UserID).
			Msg("boosts: отброшено неполное событие снятия")
		return err
	}
	channelID := domain.NormalizeChannelID(event.ChannelID)

	if err := s.repo.RemoveBoostUser(ctx, channelID, event.UserID); err != nil {
		return fmt.Errorf("удаление бустера: %w", err)
	}
	removedAt := event.RemoveDate
	if removedAt.IsZero() {
		removedAt = time.Now().UTC()
	}
	if err := s.repo.MarkBoostRemoved(ctx, event.BoostID, removedAt); err != nil {
		return fmt.Errorf("пометка буста снятым: %w", err)
	}
	if s.journal != nil {
		record, err := s.repo.Boost(ctx, event.BoostID)
		if err == nil {
			s.journalBoost(ctx, record)
		}
	}
	metrics.IncBoostEvent("removed")
	s.log.Info().
		Str("boost_id", event.BoostID).
		Int64("channel", channelID).
		Int64("user", event.UserID).
		Msg("boosts: буст снят")
	return nil
}

func (s *Service) journalBoost(ctx context.Context, record domain.BoostRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordBoostEvent(ctx, record); err != nil {
		s.log.Error().Err(err).Str("boost_id", record.BoostID).Msg("boosts: запись в журнал")
	}
}
