package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token   string `envconfig:"TG_BOT_TOKEN"`
		APIID   int    `envconfig:"TG_API_ID"`
		APIHash string `envconfig:"TG_API_HASH"`
	} `envconfig:""`

	MTProto struct {
		SessionFile string `envconfig:"MTPROTO_SESSION_FILE" default:"bot.session.json"`
	} `envconfig:""`

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	} `envconfig:""`

	// Опциональные интеграции: пустое значение выключает компонент.
	PGDSN     string `envconfig:"PG_DSN"`
	RabbitURL string `envconfig:"RABBITMQ_URL"`

	Queues struct {
		ChannelEvents string `envconfig:"CHANNEL_EVENTS_QUEUE" default:"channel_events"`
	} `envconfig:""`

	Poll struct {
		TimeoutSec    int `envconfig:"POLL_TIMEOUT_SEC" default:"30"`
		RetryDelaySec int `envconfig:"POLL_RETRY_DELAY_SEC" default:"3"`
	} `envconfig:""`

	Policy struct {
		// Включает приём приватных каналов с резолвом инвайт-ссылки вместо
		// немедленного выхода из канала.
		AllowPrivate bool `envconfig:"POLICY_ALLOW_PRIVATE" default:"false"`
	} `envconfig:""`

	Promo struct {
		AppURL    string `envconfig:"APP_URL" default:"https://t.me/stage_give_bot?startapp"`
		VideoPath string `envconfig:"PROMO_VIDEO_PATH"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
