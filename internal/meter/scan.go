package meter

import (
	"context"
	"fmt"
	"time"
)

// Scan probes the unit addresses from..to on parent's bus by reading the
// model's probe key through child meters. It returns the units that answered.
// pause is waited between probes.
func Scan(ctx context.Context, parent *Meter, model *Model, from, to uint8, pause time.Duration) ([]uint8, error) {
	if model == nil {
		model = parent.model
	}
	if from == 0 || to < from || to > 247 {
		return nil, fmt.Errorf("invalid unit range %d-%d", from, to)
	}
	logger := parent.opts.logger
	var found []uint8
	for unit := int(from); unit <= int(to); unit++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		child := parent.Child(model, uint8(unit))
		if _, err := child.Read(model.ProbeKey, false); err != nil {
			logger.Debug().Err(err).Int("unit", unit).Msg("no device")
			continue
		}
		logger.Info().Int("unit", unit).Str("model", model.Name).Msg("device found")
		found = append(found, uint8(unit))
		if pause > 0 && unit < int(to) {
			select {
			case <-ctx.Done():
				return found, ctx.Err()
			case <-time.After(pause):
			}
		}
	}
	return found, nil
}

// Identify works out which model answers as child's unit. It reads the SDM630
// table: a zero l1_voltage means a WS100, a zero import demand means an
// SDM54-2T, anything else is an SDM630.
func Identify(child *Meter) (*Model, error) {
	m := child.Child(SDM630, child.Unit())
	v, err := m.Read("l1_voltage", false)
	if err != nil {
		return nil, fmt.Errorf("identify unit %d: %w", child.Unit(), err)
	}
	if isZero(v) {
		return WS100, nil
	}
	v, err = m.Read("import_demand_power_active", false)
	if err != nil {
		return nil, fmt.Errorf("identify unit %d: %w", child.Unit(), err)
	}
	if isZero(v) {
		return SDM54_2T, nil
	}
	return SDM630, nil
}

func isZero(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == 0
	case int64:
		return n == 0
	}
	return false
}
