package main

import (
	"context"
	"encoding/hex"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tetragramaton/smh-meter/internal/ha"
	mqttIface "github.com/tetragramaton/smh-meter/internal/interface/mqtt"
	"github.com/tetragramaton/smh-meter/internal/register"
)

// State is published on <prefix>/<device>/state after every poll.
type State struct {
	Ts     int64          `json:"ts"`
	Values map[string]any `json:"values"`
	Failed []string       `json:"failed,omitempty"`
}

const valuePrecision = 6

// Run announces the meter and polls it until ctx is done.
func (h *MainHandler) Run(ctx context.Context) error {
	if err := h.PublishMeta(); err != nil {
		h.Logger.Warn().Err(err).Msg("meta publish")
	}

	ticker := time.NewTicker(h.Cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := h.PublishOnce(now); err != nil {
				h.Logger.Warn().Err(err).Msg("state publish")
			}
		}
	}
}

func (h *MainHandler) bank() (register.Bank, error) {
	return register.ParseBank(h.Cfg.Poll.Bank)
}

// Meta lists the values every poll publishes.
func (h *MainHandler) Meta() (ha.Meta, error) {
	bank, err := h.bank()
	if err != nil {
		return ha.Meta{}, err
	}
	scaled := !h.Cfg.Poll.Raw
	var entries []register.Entry
	for _, e := range h.Meter.Catalog().Bank(bank) {
		if e.BatchGroup < 1 || (scaled && e.Scale == nil) {
			continue
		}
		entries = append(entries, e)
	}
	return ha.Meta{
		DeviceID:   h.Cfg.DeviceID,
		Model:      h.Cfg.Model,
		Area:       h.Cfg.Area,
		StateTopic: h.Cfg.Topic("/state"),
		Sensors:    ha.SensorsFromEntries(entries),
	}, nil
}

// PublishMeta announces the meter, retained.
func (h *MainHandler) PublishMeta() error {
	meta, err := h.Meta()
	if err != nil {
		return err
	}
	return h.publish("/meta", meta, true)
}

// PublishOnce reads the configured bank and publishes one state message.
func (h *MainHandler) PublishOnce(now time.Time) error {
	bank, err := h.bank()
	if err != nil {
		return err
	}
	readings := h.Meter.ReadAll(bank, !h.Cfg.Poll.Raw)

	state := State{
		Ts:     now.Unix(),
		Values: make(map[string]any, len(readings.Values)),
	}
	for key, v := range readings.Values {
		out, ok := normalize(v)
		if !ok {
			state.Failed = append(state.Failed, key)
			continue
		}
		state.Values[key] = out
	}
	for key, err := range readings.Failed {
		h.Logger.Debug().Err(err).Str("key", key).Msg("value unavailable")
		state.Failed = append(state.Failed, key)
	}
	sort.Strings(state.Failed)

	if len(state.Values) == 0 && len(state.Failed) > 0 {
		h.Logger.Warn().Int("failed", len(state.Failed)).Msg("no values read")
	}
	return h.publish("/state", state, false)
}

// normalize makes v JSON friendly. Floats are rounded to drop binary noise,
// non-finite floats are rejected.
func normalize(v any) (any, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, false
		}
		return decimal.NewFromFloat(t).Round(valuePrecision).InexactFloat64(), true
	case []byte:
		return hex.EncodeToString(t), true
	default:
		return v, true
	}
}

func (h *MainHandler) publish(path string, payload any, retain bool) error {
	msg, err := mqttIface.JSONMessage(h.Cfg.Topic(path), payload, retain)
	if err != nil {
		return err
	}
	return h.MQQTClient.PublishEvent(msg)
}
