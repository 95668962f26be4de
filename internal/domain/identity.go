package domain

import (
	"strconv"
	"strings"
)

// Каноничный префикс идентификатора канала в Bot API.
const channelIDPrefix = "-100"

// NormalizeChannelID приводит идентификатор канала к каноничной форме с
// префиксом -100. MTProto отдаёт "короткий" положительный id, Bot API —
// уже с префиксом; все ключи хранилища строятся только из каноничной формы.
func NormalizeChannelID(raw int64) int64 {
	str := strconv.FormatInt(raw, 10)
	if strings.HasPrefix(str, channelIDPrefix) {
		return raw
	}
	str = strings.TrimPrefix(str, "-")
	normalized, err := strconv.ParseInt(channelIDPrefix+str, 10, 64)
	if err != nil {
		// Переполнение int64 невозможно для реальных id каналов.
		return raw
	}
	return normalized
}
