package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ChannelEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "channel_events_total",
		Help: "События членства бота в каналах по источнику и типу",
	}, []string{"source", "kind"})

	ChannelRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "channel_rejected_total",
		Help: "Отклонённые приватные каналы",
	})

	ReconcileSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_seconds",
		Help:    "Время полного прохода реконсиляции канала",
		Buckets: prometheus.DefBuckets,
	})

	BoostEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boost_events_total",
		Help: "Обработанные события бустов",
	}, []string{"kind"})

	BoostEventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boost_events_dropped_total",
		Help: "События бустов, отброшенные из-за неполных данных",
	})

	UpdateFeedErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "update_feed_errors_total",
		Help: "Ошибки long-poll фида обновлений",
	})

	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ChannelEventsTotal,
		ChannelRejectedTotal,
		ReconcileSeconds,
		BoostEventsTotal,
		BoostEventsDropped,
		UpdateFeedErrors,
		BotSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}

// IncChannelEvent увеличивает счётчик событий каналов.
func IncChannelEvent(source, kind string) {
	ChannelEventsTotal.WithLabelValues(source, kind).Inc()
}

// IncBoostEvent увеличивает счётчик событий бустов.
func IncBoostEvent(kind string) {
	BoostEventsTotal.WithLabelValues(kind).Inc()
}
