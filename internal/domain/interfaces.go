package domain

import (
	"context"
	"time"
)

// MembershipRepo управляет двусторонним индексом «админ — канал».
// Все операции — идемпотентные операции над множествами.
type MembershipRepo interface {
	AddChannelForUser(ctx context.Context, userID, channelID int64) error
	RemoveChannelForUser(ctx context.Context, userID, channelID int64) error
	UserChannels(ctx context.Context, userID int64) (map[int64]struct{}, error)
	// UsersWithChannel выполняет полный проход по индексам всех пользователей:
	// O(кол-во пользователей), допустимо только на редком пути удаления.
	UsersWithChannel(ctx context.Context, channelID int64) ([]int64, error)
}

// ChannelMetaRepo хранит метаданные канала. Каждое поле обновляется
// независимо: сбой одного фетча не должен блокировать остальные.
type ChannelMetaRepo interface {
	SaveTitle(ctx context.Context, channelID int64, title string) error
	SaveUsername(ctx context.Context, channelID int64, username string) error
	SaveURL(ctx context.Context, channelID int64, url string) error
	SavePhotoSmall(ctx context.Context, channelID int64, url string) error
	SavePhotoBig(ctx context.Context, channelID int64, url string) error
	ChannelRecord(ctx context.Context, channelID int64) (ChannelRecord, error)
}

// BoostRepo ведёт быстрый индекс бустеров канала и аудиторские записи.
type BoostRepo interface {
	AddBoostUser(ctx context.Context, channelID, userID int64) error
	RemoveBoostUser(ctx context.Context, channelID, userID int64) error
	HasBoostUser(ctx context.Context, channelID, userID int64) (bool, error)
	UpsertBoost(ctx context.Context, record BoostRecord) error
	MarkBoostRemoved(ctx context.Context, boostID string, removedAt time.Time) error
	Boost(ctx context.Context, boostID string) (BoostRecord, error)
}

// ChannelGateway — действия над платформой от имени бота.
type ChannelGateway interface {
	Chat(ctx context.Context, channelID int64) (ChannelInfo, error)
	Admins(ctx context.Context, channelID int64) ([]int64, error)
	CreateInviteLink(ctx context.Context, channelID int64) (string, error)
	ExportInviteLink(ctx context.Context, channelID int64) (string, error)
	FileURL(ctx context.Context, fileID string) (string, error)
	Leave(ctx context.Context, channelID int64) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// EventJournal сохраняет события в аудиторский журнал. Реализация может
// отсутствовать (nil-безопасная обёртка на стороне вызывающего).
type EventJournal interface {
	RecordChannelEvent(ctx context.Context, event ChannelEvent, channelID int64) error
	RecordBoostEvent(ctx context.Context, record BoostRecord) error
}

// EventPublisher отправляет интеграционные события бэкенду розыгрышей.
type EventPublisher interface {
	PublishChannelOnboarded(ctx context.Context, record ChannelRecord, actorID int64) error
	PublishChannelRemoved(ctx context.Context, channelID int64) error
}

// Cache используется для простых TTL-хранилищ и дедупликации.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
	Del(key string) error
}
