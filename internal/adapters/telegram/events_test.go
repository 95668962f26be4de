package telegram

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"giveaway-bot/internal/domain"
)

const testBotID int64 = 777

func chatMemberUpdated(oldStatus, newStatus string, memberID int64) tgbotapi.ChatMemberUpdated {
	return tgbotapi.ChatMemberUpdated{
		Chat: tgbotapi.Chat{ID: -1001234, Title: "Foo News", UserName: "foo"},
		From: tgbotapi.User{ID: 42},
		OldChatMember: tgbotapi.ChatMember{
			User:   &tgbotapi.User{ID: memberID, IsBot: true},
			Status: oldStatus,
		},
		NewChatMember: tgbotapi.ChatMember{
			User:   &tgbotapi.User{ID: memberID, IsBot: true},
			Status: newStatus,
		},
	}
}

func TestChannelEventFromChatMember(t *testing.T) {
	tests := []struct {
		name     string
		upd      tgbotapi.ChatMemberUpdated
		wantOK   bool
		wantKind domain.ChannelEventKind
	}{
		{name: "добавление", upd: chatMemberUpdated("left", "administrator", testBotID), wantOK: true, wantKind: domain.ChannelEventAdded},
		{name: "добавление участником", upd: chatMemberUpdated("left", "member", testBotID), wantOK: true, wantKind: domain.ChannelEventAdded},
		{name: "удаление", upd: chatMemberUpdated("administrator", "kicked", testBotID), wantOK: true, wantKind: domain.ChannelEventRemoved},
		{name: "выход", upd: chatMemberUpdated("member", "left", testBotID), wantOK: true, wantKind: domain.ChannelEventRemoved},
		{name: "чужое членство", upd: chatMemberUpdated("left", "member", 12345), wantOK: false},
		{name: "смена прав без смены членства", upd: chatMemberUpdated("administrator", "administrator", testBotID), wantOK: false},
		{name: "повышение до администратора", upd: chatMemberUpdated("member", "administrator", testBotID), wantOK: false},
		{name: "понижение до участника", upd: chatMemberUpdated("administrator", "member", testBotID), wantOK: false},
		{name: "рестрикция", upd: chatMemberUpdated("member", "restricted", testBotID), wantOK: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event, ok := ChannelEventFromChatMember(tc.upd, testBotID)
			if ok != tc.wantOK {
				t.Fatalf("ok: ожидали %v, получили %v", tc.wantOK, ok)
			}
			if !ok {
				return
			}
			if event.Kind != tc.wantKind {
				t.Errorf("kind: ожидали %q, получили %q", tc.wantKind, event.Kind)
			}
			if event.Source != domain.SourcePolled {
				t.Errorf("source: %q", event.Source)
			}
			if event.ChannelID != -1001234 || event.ActorID != 42 {
				t.Errorf("идентификаторы: channel=%d actor=%d", event.ChannelID, event.ActorID)
			}
			if !event.HasMeta || event.Title != "Foo News" || event.Username != "foo" {
				t.Errorf("метаданные: %+v", event)
			}
		})
	}
}

func TestBoostEventFromUpdate(t *testing.T) {
	upd := ChatBoostUpdated{
		Chat: tgbotapi.Chat{ID: -1009999},
		Boost: ChatBoost{
			BoostID:        "b1",
			AddDate:        1700000000,
			ExpirationDate: 1707776000,
			Source:         ChatBoostSource{Source: "premium", User: &tgbotapi.User{ID: 55}},
		},
	}
	event := BoostEventFromUpdate(upd)
	if event.BoostID != "b1" || event.ChannelID != -1009999 || event.UserID != 55 {
		t.Errorf("поля события: %+v", event)
	}
	if !event.AddDate.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("add_date: %v", event.AddDate)
	}
	if !event.ExpireDate.Equal(time.Unix(1707776000, 0)) {
		t.Errorf("expiration_date: %v", event.ExpireDate)
	}
	if len(event.RawPayload) == 0 {
		t.Error("сырой payload не сохранён")
	}
}

// Анонимный буст (giveaway-источник без пользователя) — неполное событие,
// его отбросит валидация сервиса.
func TestBoostEventFromUpdateWithoutUser(t *testing.T) {
	event := BoostEventFromUpdate(ChatBoostUpdated{
		Chat:  tgbotapi.Chat{ID: -1009999},
		Boost: ChatBoost{BoostID: "b2", Source: ChatBoostSource{Source: "giveaway"}},
	})
	if event.UserID != 0 {
		t.Errorf("ожидали нулевой user_id, получили %d", event.UserID)
	}
}

func TestBoostEventFromRemoval(t *testing.T) {
	event := BoostEventFromRemoval(ChatBoostRemoved{
		Chat:       tgbotapi.Chat{ID: -1009999},
		BoostID:    "b1",
		RemoveDate: 1700003600,
		Source:     ChatBoostSource{Source: "premium", User: &tgbotapi.User{ID: 55}},
	})
	if event.BoostID != "b1" || event.ChannelID != -1009999 || event.UserID != 55 {
		t.Errorf("поля события: %+v", event)
	}
	if !event.RemoveDate.Equal(time.Unix(1700003600, 0)) {
		t.Errorf("remove_date: %v", event.RemoveDate)
	}
}
