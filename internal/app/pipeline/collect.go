package pipeline

import (
	"errors"
	"fmt"

	"github.com/ghalamif/vesagent/internal/ports"
)

// StartCollectors starts every collector feeding ing. When one fails, the
// collectors already started are stopped again.
func StartCollectors(cols []ports.Collector, ing ports.Ingestor, obs ports.Observability) error {
	for i, col := range cols {
		if err := col.Start(ing); err != nil {
			if stopErr := StopCollectors(cols[:i]); stopErr != nil {
				obs.LogError("collector_stop_failed", stopErr)
			}
			return fmt.Errorf("start collector %d: %w", i, err)
		}
	}
	obs.LogInfo("collectors_started", ports.Field{Key: "count", Value: len(cols)})
	return nil
}

// StopCollectors stops the collectors in reverse start order.
func StopCollectors(cols []ports.Collector) error {
	var errs []error
	for i := len(cols) - 1; i >= 0; i-- {
		if err := cols[i].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
