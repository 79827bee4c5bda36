package drivers

import (
	"context"

	"github.com/hubertat/sapflow/conversion"
)

// SensorDriver is a source of ribbon board readings: real hardware or a mock.
// Implementations are not safe for concurrent use.
type SensorDriver interface {
	Setup(ctx context.Context) error
	Close() error
	IsReady() bool
	Name() string
	ReadThermistor(ctx context.Context, index int) (float64, error)
	ReadShunt(ctx context.Context) (conversion.Shunt, error)
}
