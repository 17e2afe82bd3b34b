package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synctune_events_total",
		Help: "Total inbound websocket events by type",
	}, []string{"type"})

	BroadcastMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synctune_broadcast_messages_total",
		Help: "Total messages fanned out to room members",
	})

	SnapshotWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synctune_snapshot_writes_total",
		Help: "Total room snapshot writes flushed to the backend",
	})

	SnapshotErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synctune_snapshot_errors_total",
		Help: "Total failed room snapshot writes",
	})

	Rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "synctune_rooms",
		Help: "Rooms currently held in memory",
	})

	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "synctune_connections",
		Help: "Live websocket connections",
	})
)
