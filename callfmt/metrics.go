// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callfmt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	linesRead      prometheus.Counter
	diagnostics    prometheus.Counter
	partsImported  prometheus.Counter
	importFailures prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		linesRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "cgrind_import_lines_read_total",
			Help: "Number of trace lines read by the importer.",
		}),
		diagnostics: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "cgrind_import_diagnostics_total",
			Help: "Number of recoverable problems found while importing.",
		}),
		partsImported: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "cgrind_import_parts_total",
			Help: "Number of parts imported successfully.",
		}),
		importFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "cgrind_import_failures_total",
			Help: "Number of imports aborted by a fatal error.",
		}),
	}
	return m
}

// nopMetrics backs Importers built as struct literals rather than with
// NewImporter. With a nil Registerer the counters are never exported.
var nopMetrics = newMetrics(nil)
