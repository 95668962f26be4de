package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"giveaway-bot/internal/domain"
	"giveaway-bot/internal/infra/metrics"
)

// Ключи совпадают со схемой бэкенда розыгрышей: обе стороны читают один
// и тот же keyspace.
const (
	userChannelsKey     = "user:%d:channels"
	userChannelsPattern = "user:*:channels"
	channelTitleKey     = "channel:%d:title"
	channelUsernameKey  = "channel:%d:username"
	channelURLKey       = "channel:%d:url"
	channelPhotoSmall   = "channel:%d:photo:small"
	channelPhotoBig     = "channel:%d:photo:big"
	channelBoostersKey  = "channel:%d:boost_users"
	boostRecordKey      = "boost:%s"
)

// ErrBoostNotFound возвращается, когда аудиторская запись буста отсутствует.
var ErrBoostNotFound = errors.New("запись буста не найдена")

// Redis реализует леджеры членства, метаданных и бустов поверх go-redis.
// Все ключи строятся из каноничных идентификаторов каналов.
type Redis struct {
	client *redis.Client
}

var (
	_ domain.MembershipRepo  = (*Redis)(nil)
	_ domain.ChannelMetaRepo = (*Redis)(nil)
	_ domain.BoostRepo       = (*Redis)(nil)
)

// NewRedis создаёт адаптер хранилища.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// AddChannelForUser добавляет канал в множество каналов пользователя.
func (r *Redis) AddChannelForUser(ctx context.Context, userID, channelID int64) error {
	key := fmt.Sprintf(userChannelsKey, userID)
	start := time.Now()
	err := r.client.SAdd(ctx, key, channelID).Err()
	metrics.ObserveNetworkRequest("redis", "sadd_user_channel", start, err)
	return err
}

// RemoveChannelForUser удаляет канал из множества пользователя.
// Удаление отсутствующего элемента — no-op.
func (r *Redis) RemoveChannelForUser(ctx context.Context, userID, channelID int64) error {
	key := fmt.Sprintf(userChannelsKey, userID)
	start := time.Now()
	err := r.client.SRem(ctx, key, channelID).Err()
	metrics.ObserveNetworkRequest("redis", "srem_user_channel", start, err)
	return err
}

// UserChannels возвращает множество каналов пользователя.
func (r *Redis) UserChannels(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	key := fmt.Sprintf(userChannelsKey, userID)
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("чтение каналов пользователя: %w", err)
	}
	channels := make(map[int64]struct{}, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		channels[id] = struct{}{}
	}
	return channels, nil
}

// UsersWithChannel обходит индексы всех пользователей и возвращает тех, у
// кого канал числится в множестве. O(кол-во пользователей), вызывается
// только на редком пути удаления бота из канала.
func (r *Redis) UsersWithChannel(ctx context.Context, channelID int64) ([]int64, error) {
	var users []int64
	member := strconv.FormatInt(channelID, 10)
	iter := r.client.Scan(ctx, 0, userChannelsPattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		parts := strings.Split(key, ":")
		if len(parts) != 3 {
			continue
		}
		userID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		ok, err := r.client.SIsMember(ctx, key, member).Result()
		if err != nil {
			return nil, fmt.Errorf("проверка членства %s: %w", key, err)
		}
		if ok {
			users = append(users, userID)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("скан индексов пользователей: %w", err)
	}
	return users, nil
}

func (r *Redis) setField(ctx context.Context, operation, key, value string) error {
	start := time.Now()
	err := r.client.Set(ctx, key, value, 0).Err()
	metrics.ObserveNetworkRequest("redis", operation, start, err)
	return err
}

// SaveTitle сохраняет название канала.
func (r *Redis) SaveTitle(ctx context.Context, channelID int64, title string) error {
	return r.setField(ctx, "set_title", fmt.Sprintf(channelTitleKey, channelID), title)
}

// SaveUsername сохраняет username канала; пустая строка значит «приватный».
func (r *Redis) SaveUsername(ctx context.Context, channelID int64, username string) error {
	return r.setField(ctx, "set_username", fmt.Sprintf(channelUsernameKey, channelID), username)
}

// SaveURL сохраняет каноничный URL канала.
func (r *Redis) SaveURL(ctx context.Context, channelID int64, url string) error {
	return r.setField(ctx, "set_url", fmt.Sprintf(channelURLKey, channelID), url)
}

// SavePhotoSmall сохраняет URL маленького аватара.
func (r *Redis) SavePhotoSmall(ctx context.Context, channelID int64, url string) error {
	return r.setField(ctx, "set_photo_small", fmt.Sprintf(channelPhotoSmall, channelID), url)
}

// SavePhotoBig сохраняет URL большого аватара.
func (r *Redis) SavePhotoBig(ctx context.Context, channelID int64, url string) error {
	return r.setField(ctx, "set_photo_big", fmt.Sprintf(channelPhotoBig, channelID), url)
}

func (r *Redis) getField(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

// ChannelRecord собирает последнее известное состояние канала.
func (r *Redis) ChannelRecord(ctx context.Context, channelID int64) (domain.ChannelRecord, error) {
	record := domain.ChannelRecord{ID: channelID}
	var err error
	if record.Title, err = r.getField(ctx, fmt.Sprintf(channelTitleKey, channelID)); err != nil {
		return record, fmt.Errorf("чтение title: %w", err)
	}
	if record.Username, err = r.getField(ctx, fmt.Sprintf(channelUsernameKey, channelID)); err != nil {
		return record, fmt.Errorf("чтение username: %w", err)
	}
	if record.URL, err = r.getField(ctx, fmt.Sprintf(channelURLKey, channelID)); err != nil {
		return record, fmt.Errorf("чтение url: %w", err)
	}
	if record.PhotoSmallURL, err = r.getField(ctx, fmt.Sprintf(channelPhotoSmall, channelID)); err != nil {
		return record, fmt.Errorf("чтение photo small: %w", err)
	}
	if record.PhotoBigURL, err = r.getField(ctx, fmt.Sprintf(channelPhotoBig, channelID)); err != nil {
		return record, fmt.Errorf("чтение photo big: %w", err)
	}
	return record, nil
}

// AddBoostUser добавляет пользователя в множество бустеров канала.
func (r *Redis) AddBoostUser(ctx context.Context, channelID, userID int64) error {
	key := fmt.Sprintf(channelBoostersKey, channelID)
	start := time.Now()
	err := r.client.SAdd(ctx, key, userID).Err()
	metrics.ObserveNetworkRequest("redis", "sadd_boost_user", start, err)
	return err
}

// RemoveBoostUser удаляет пользователя из множества бустеров.
func (r *Redis) RemoveBoostUser(ctx context.Context, channelID, userID int64) error {
	key := fmt.Sprintf(channelBoostersKey, channelID)
	start := time.Now()
	err := r.client.SRem(ctx, key, userID).Err()
	metrics.ObserveNetworkRequest("redis", "srem_boost_user", start, err)
	return err
}

// HasBoostUser проверяет наличие буста у пользователя.
func (r *Redis) HasBoostUser(ctx context.Context, channelID, userID int64) (bool, error) {
	key := fmt.Sprintf(channelBoostersKey, channelID)
	return r.client.SIsMember(ctx, key, strconv.FormatInt(userID, 10)).Result()
}

// UpsertBoost сохраняет аудиторскую запись буста. Повторная доставка того же
// boost_id перезаписывает запись тем же содержимым.
func (r *Redis) UpsertBoost(ctx context.Context, record domain.BoostRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("сериализация буста: %w", err)
	}
	key := fmt.Sprintf(boostRecordKey, record.BoostID)
	start := time.Now()
	err = r.client.Set(ctx, key, payload, 0).Err()
	metrics.ObserveNetworkRequest("redis", "set_boost_record", start, err)
	return err
}

// MarkBoostRemoved помечает запись буста снятой.
func (r *Redis) MarkBoostRemoved(ctx context.Context, boostID string, removedAt time.Time) error {
	record, err := r.Boost(ctx, boostID)
	if err != nil {
		if errors.Is(err, ErrBoostNotFound) {
			// Снятие буста, которого мы не видели: фиксируем только статус.
			record = domain.BoostRecord{BoostID: boostID}
		} else {
			return err
		}
	}
	record.Status = domain.BoostStatusRemoved
	record.RemoveDate = &removedAt
	return r.UpsertBoost(ctx, record)
}

// Boost возвращает аудиторскую запись буста.
func (r *Redis) Boost(ctx context.Context, boostID string) (domain.BoostRecord, error) {
	key := fmt.Sprintf(boostRecordKey, boostID)
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BoostRecord{}, ErrBoostNotFound
	}
	if err != nil {
		return domain.BoostRecord{}, fmt.Errorf("чтение буста: %w", err)
	}
	var record domain.BoostRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return domain.BoostRecord{}, fmt.Errorf("декодирование буста: %w", err)
	}
	return record, nil
}
