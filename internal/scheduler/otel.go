package scheduler

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/trafficsignal/trafficsignal/internal/scheduler"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
