package domain

import "time"

// ChannelInfo содержит актуальные сведения о канале от платформы.
type ChannelInfo struct {
	ID           int64
	Title        string
	Username     string
	InviteLink   string
	PhotoSmallID string
	PhotoBigID   string
}

// ChannelRecord хранит последнее известное состояние канала в леджере.
// Пустая строка в URL — явный маркер «неизвестно», а не отсутствие поля.
type ChannelRecord struct {
	ID            int64
	Title         string
	Username      string
	URL           string
	PhotoSmallURL string
	PhotoBigURL   string
}

// BoostStatus описывает жизненный цикл буста.
type BoostStatus string

const (
	BoostStatusActive  BoostStatus = "active"
	BoostStatusRemoved BoostStatus = "removed"
)

// BoostRecord — аудиторская запись буста канала. Ключ дедупликации —
// только BoostID, остальные поля фид может повторять сколько угодно раз.
type BoostRecord struct {
	BoostID    string      `json:"boost_id"`
	ChannelID  int64       `json:"channel_id"`
	UserID     int64       `json:"user_id"`
	AddDate    time.Time   `json:"add_date"`
	ExpireDate time.Time   `json:"expire_date"`
	Status     BoostStatus `json:"status"`
	RemoveDate *time.Time  `json:"remove_date,omitempty"`
	RawPayload []byte      `json:"raw_payload,omitempty"`
}
