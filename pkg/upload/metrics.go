// This file is part of gpx-tracker (https://github.com/spezifisch/gpx-tracker).
// Copyright (C) 2021-2022 spezifisch <spezifisch-7e6@below.fr> (https://github.com/spezifisch).
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, version 3 of the License.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE. See the GNU Affero General Public License for more
// details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.


package upload

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gpxtracker",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gpxtracker",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gpxtracker",
		Subsystem: "upload",
		Name:      "files_total",
		Help:      "Total uploads by outcome",
	}, []string{"outcome"})

	uploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gpxtracker",
		Subsystem: "upload",
		Name:      "file_size_bytes",
		Help:      "Size of stored uploads in bytes",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
	})

	bucketsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gpxtracker",
		Subsystem: "upload",
		Name:      "buckets_purged_total",
		Help:      "Total expired date buckets removed",
	})
)

// upload outcomes
const (
	outcomeStored  = "stored"
	outcomeEmpty   = "empty"
	outcomeInvalid = "invalid"
	outcomeFailed  = "failed"
)

// metricsMiddleware records request metrics.
func metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// metricsHandler serves the Prometheus registry through fiber.
func metricsHandler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
