// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import (
	"github.com/prometheus/client_golang/prometheus"
)

type electionMetrics struct {
	electionsStarted      prometheus.Counter
	notificationsSent     prometheus.Counter
	notificationsReceived prometheus.Counter
	notificationsDropped  prometheus.Counter
	leaderElections       prometheus.Counter
	logicalClock          prometheus.Gauge
	electionSeconds       prometheus.Gauge
}

func newElectionMetrics(registerer prometheus.Registerer) (*electionMetrics, error) {
	m := &electionMetrics{
		electionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "election_instances_started",
			Help: "Number of election instances entered",
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "election_notifications_sent",
			Help: "Number of notifications handed to the connection manager",
		}),
		notificationsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "election_notifications_received",
			Help: "Number of notifications delivered to the election loop",
		}),
		notificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "election_notifications_dropped",
			Help: "Number of frames or notifications dropped",
		}),
		leaderElections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "election_leaderships_won",
			Help: "Number of elections this peer won",
		}),
		logicalClock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "election_logical_clock",
			Help: "Current election epoch",
		}),
		electionSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "election_last_duration_seconds",
			Help: "Duration of the last election instance",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.electionsStarted,
		m.notificationsSent,
		m.notificationsReceived,
		m.notificationsDropped,
		m.leaderElections,
		m.logicalClock,
		m.electionSeconds,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
