package domain

import "time"

// EventSource указывает, каким транспортом доставлено событие.
type EventSource string

const (
	// SourcePush — живая подписка MTProto (UpdateChannelParticipant).
	SourcePush EventSource = "push"
	// SourcePolled — long-poll фид Bot API (my_chat_member).
	SourcePolled EventSource = "polled"
)

// ChannelEventKind описывает, что произошло с ботом в канале.
type ChannelEventKind string

const (
	ChannelEventAdded   ChannelEventKind = "added"
	ChannelEventRemoved ChannelEventKind = "removed"
)

// ChannelEvent — одно событие членства бота в канале. ChannelID приходит в
// «сыром» виде источника и нормализуется реконсилером. Title и Username
// заполняются, только если источник их нёс (MTProto entities).
type ChannelEvent struct {
	Kind      ChannelEventKind
	Source    EventSource
	ChannelID int64
	ActorID   int64
	Title     string
	Username  string
	HasMeta   bool
}

// BoostEvent — событие добавления или снятия буста из полл-фида.
type BoostEvent struct {
	BoostID    string
	ChannelID  int64
	UserID     int64
	AddDate    time.Time
	ExpireDate time.Time
	RemoveDate time.Time
	RawPayload []byte
}
