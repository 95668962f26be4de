package telegram

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func newTestFeed(handlers Handlers) *UpdateFeed {
	return NewUpdateFeed(nil, zerolog.Nop(), handlers, 1, time.Second)
}

func TestDispatchAdvancesOffset(t *testing.T) {
	feed := newTestFeed(Handlers{})
	ctx := context.Background()

	feed.Dispatch(ctx, json.RawMessage(`{"update_id": 10}`))
	if feed.Offset() != 11 {
		t.Fatalf("ожидали оффсет 11, получили %d", feed.Offset())
	}
	// Меньший update_id оффсет не откатывает.
	feed.Dispatch(ctx, json.RawMessage(`{"update_id": 5}`))
	if feed.Offset() != 11 {
		t.Fatalf("оффсет откатился: %d", feed.Offset())
	}
	feed.Dispatch(ctx, json.RawMessage(`{"update_id": 12}`))
	if feed.Offset() != 13 {
		t.Fatalf("ожидали оффсет 13, получили %d", feed.Offset())
	}
}

func TestDispatchMalformedStillAdvances(t *testing.T) {
	feed := newTestFeed(Handlers{
		OnMessage: func(context.Context, *tgbotapi.Message) {
			t.Error("некорректное обновление не должно доходить до обработчика")
		},
	})

	feed.Dispatch(context.Background(), json.RawMessage(`{"update_id": 42, "message": "oops"}`))
	if feed.Offset() != 43 {
		t.Fatalf("оффсет должен продвигаться и для мусора, получили %d", feed.Offset())
	}
}

func TestDispatchMyChatMember(t *testing.T) {
	var got tgbotapi.ChatMemberUpdated
	feed := newTestFeed(Handlers{
		OnMyChatMember: func(_ context.Context, upd tgbotapi.ChatMemberUpdated) {
			got = upd
		},
	})

	raw := `{
		"update_id": 100,
		"my_chat_member": {
			"chat": {"id": -1001234, "title": "Foo News", "username": "foo", "type": "channel"},
			"from": {"id": 42, "is_bot": false, "first_name": "Ann"},
			"date": 1700000000,
			"old_chat_member": {"user": {"id": 777, "is_bot": true, "first_name": "bot"}, "status": "left"},
			"new_chat_member": {"user": {"id": 777, "is_bot": true, "first_name": "bot"}, "status": "administrator"}
		}
	}`
	feed.Dispatch(context.Background(), json.RawMessage(raw))

	if got.Chat.ID != -1001234 {
		t.Errorf("chat.id: ожидали -1001234, получили %d", got.Chat.ID)
	}
	if got.From.ID != 42 {
		t.Errorf("from.id: ожидали 42, получили %d", got.From.ID)
	}
	if got.NewChatMember.Status != "administrator" {
		t.Errorf("статус: %q", got.NewChatMember.Status)
	}
	if feed.Offset() != 101 {
		t.Errorf("оффсет: %d", feed.Offset())
	}
}

func TestDispatchChatBoost(t *testing.T) {
	var got ChatBoostUpdated
	feed := newTestFeed(Handlers{
		OnChatBoost: func(_ context.Context, upd ChatBoostUpdated) {
			got = upd
		},
	})

	raw := `{
		"update_id": 200,
		"chat_boost": {
			"chat": {"id": -1009999, "title": "Boosted", "type": "channel"},
			"boost": {
				"boost_id": "b1",
				"add_date": 1700000000,
				"expiration_date": 1707776000,
				"source": {"source": "premium", "user": {"id": 55, "is_bot": false, "first_name": "Bob"}}
			}
		}
	}`
	feed.Dispatch(context.Background(), json.RawMessage(raw))

	if got.Boost.BoostID != "b1" {
		t.Errorf("boost_id: %q", got.Boost.BoostID)
	}
	if got.Chat.ID != -1009999 {
		t.Errorf("chat.id: %d", got.Chat.ID)
	}
	if got.Boost.Source.User == nil || got.Boost.Source.User.ID != 55 {
		t.Errorf("источник буста: %+v", got.Boost.Source)
	}
}

func TestDispatchRemovedChatBoost(t *testing.T) {
	var got ChatBoostRemoved
	feed := newTestFeed(Handlers{
		OnRemovedChatBoost: func(_ context.Context, upd ChatBoostRemoved) {
			got = upd
		},
	})

	raw := `{
		"update_id": 201,
		"removed_chat_boost": {
			"chat": {"id": -1009999, "type": "channel"},
			"boost_id": "b1",
			"remove_date": 1700003600,
			"source": {"source": "premium", "user": {"id": 55, "is_bot": false, "first_name": "Bob"}}
		}
	}`
	feed.Dispatch(context.Background(), json.RawMessage(raw))

	if got.BoostID != "b1" {
		t.Errorf("boost_id: %q", got.BoostID)
	}
	if got.RemoveDate != 1700003600 {
		t.Errorf("remove_date: %d", got.RemoveDate)
	}
}
