package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"giveaway-bot/internal/domain"
	"giveaway-bot/internal/infra/metrics"
)

// Client реализует domain.ChannelGateway поверх Bot API.
type Client struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

var _ domain.ChannelGateway = (*Client)(nil)

// NewClient создаёт гейтвей.
func NewClient(bot *tgbotapi.BotAPI, log zerolog.Logger) *Client {
	return &Client{bot: bot, log: log}
}

// Chat возвращает сведения о канале: название, username, основную
// инвайт-ссылку и идентификаторы файлов аватара.
func (c *Client) Chat(ctx context.Context, channelID int64) (domain.ChannelInfo, error) {
	start := time.Now()
	chat, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: channelID},
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat", start, err)
	if err != nil {
		return domain.ChannelInfo{}, fmt.Errorf("getChat %d: %w", channelID, err)
	}
	info := domain.ChannelInfo{
		ID:         chat.ID,
		Title:      chat.Title,
		Username:   chat.UserName,
		InviteLink: chat.InviteLink,
	}
	if chat.Photo != nil {
		info.PhotoSmallID = chat.Photo.SmallFileID
		info.PhotoBigID = chat.Photo.BigFileID
	}
	return info, nil
}

// Admins возвращает идентификаторы администраторов и создателя канала.
func (c *Client) Admins(ctx context.Context, channelID int64) ([]int64, error) {
	start := time.Now()
	members, err := c.bot.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: channelID},
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat_administrators", start, err)
	if err != nil {
		return nil, fmt.Errorf("getChatAdministrators %d: %w", channelID, err)
	}
	admins := make([]int64, 0, len(members))
	for _, member := range members {
		if member.User == nil {
			continue
		}
		if member.Status != "administrator" && member.Status != "creator" {
			continue
		}
		if member.User.IsBot {
			continue
		}
		admins = append(admins, member.User.ID)
	}
	return admins, nil
}

// CreateInviteLink создаёт новую инвайт-ссылку канала.
func (c *Client) CreateInviteLink(ctx context.Context, channelID int64) (string, error) {
	start := time.Now()
	resp, err := c.bot.Request(tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: channelID},
	})
	metrics.ObserveNetworkRequest("telegram_bot", "create_invite_link", start, err)
	if err != nil {
		return "", fmt.Errorf("createChatInviteLink %d: %w", channelID, err)
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("декодирование инвайт-ссылки: %w", err)
	}
	return link.InviteLink, nil
}

// ExportInviteLink перевыпускает основную инвайт-ссылку канала.
func (c *Client) ExportInviteLink(ctx context.Context, channelID int64) (string, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", channelID)
	start := time.Now()
	resp, err := c.bot.MakeRequest("exportChatInviteLink", params)
	metrics.ObserveNetworkRequest("telegram_bot", "export_invite_link", start, err)
	if err != nil {
		return "", fmt.Errorf("exportChatInviteLink %d: %w", channelID, err)
	}
	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("декодирование инвайт-ссылки: %w", err)
	}
	return link, nil
}

// FileURL резолвит идентификатор файла в ссылку на скачивание.
func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	start := time.Now()
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	metrics.ObserveNetworkRequest("telegram_bot", "get_file", start, err)
	if err != nil {
		return "", fmt.Errorf("getFile %s: %w", fileID, err)
	}
	return file.Link(c.bot.Token), nil
}

// Leave выводит бота из канала.
func (c *Client) Leave(ctx context.Context, channelID int64) error {
	start := time.Now()
	_, err := c.bot.Request(tgbotapi.LeaveChatConfig{ChatID: channelID})
	metrics.ObserveNetworkRequest("telegram_bot", "leave_chat", start, err)
	if err != nil {
		return fmt.Errorf("leaveChat %d: %w", channelID, err)
	}
	return nil
}

// SendMessage отправляет личное сообщение пользователю.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	start := time.Now()
	_, err := c.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_message", start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		return fmt.Errorf("sendMessage %d: %w", chatID, err)
	}
	return nil
}
