package telegram

import (
	"encoding/json"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"giveaway-bot/internal/domain"
)

// inChannel сводит статус к факту членства: повышения и понижения прав
// внутри канала членство не меняют.
func inChannel(status string) bool {
	return status == "member" || status == "administrator"
}

// ChannelEventFromChatMember превращает my_chat_member в доменное событие.
// Возвращает false, если обновление не про членство бота или переход
// статусов не меняет факт членства (например, повышение до администратора).
func ChannelEventFromChatMember(upd tgbotapi.ChatMemberUpdated, botID int64) (domain.ChannelEvent, bool) {
	if upd.NewChatMember.User == nil || upd.NewChatMember.User.ID != botID {
		return domain.ChannelEvent{}, false
	}
	event := domain.ChannelEvent{
		Source:    domain.SourcePolled,
		ChannelID: upd.Chat.ID,
		ActorID:   upd.From.ID,
		Title:     upd.Chat.Title,
		Username:  upd.Chat.UserName,
		HasMeta:   true,
	}
	wasIn := inChannel(upd.OldChatMember.Status)
	nowIn := inChannel(upd.NewChatMember.Status)
	switch {
	case nowIn && !wasIn:
		event.Kind = domain.ChannelEventAdded
	case wasIn && (upd.NewChatMember.Status == "left" || upd.NewChatMember.Status == "kicked"):
		event.Kind = domain.ChannelEventRemoved
	default:
		return domain.ChannelEvent{}, false
	}
	return event, true
}

// BoostEventFromUpdate превращает chat_boost в доменное событие.
func BoostEventFromUpdate(upd ChatBoostUpdated) domain.BoostEvent {
	event := domain.BoostEvent{
		BoostID:   upd.Boost.BoostID,
		ChannelID: upd.Chat.ID,
	}
	if upd.Boost.Source.User != nil {
		event.UserID = upd.Boost.Source.User.ID
	}
	if upd.Boost.AddDate > 0 {
		event.AddDate = time.Unix(upd.Boost.AddDate, 0).UTC()
	}
	if upd.Boost.ExpirationDate > 0 {
		event.ExpireDate = time.Unix(upd.Boost.ExpirationDate, 0).UTC()
	}
	if payload, err := json.Marshal(upd); err == nil {
		event.RawPayload = payload
	}
	return event
}

// BoostEventFromRemoval превращает removed_chat_boost в доменное событие.
func BoostEventFromRemoval(upd ChatBoostRemoved) domain.BoostEvent {
	event := domain.BoostEvent{
		BoostID:   upd.BoostID,
		ChannelID: upd.Chat.ID,
	}
	if upd.Source.User != nil {
		event.UserID = upd.Source.User.ID
	}
	if upd.RemoveDate > 0 {
		event.RemoveDate = time.Unix(upd.RemoveDate, 0).UTC()
	}
	if payload, err := json.Marshal(upd); err == nil {
		event.RawPayload = payload
	}
	return event
}
