package engine

import (
	"fmt"
	"sort"

	"github.com/tetragramaton/smh-meter/internal/codec"
	"github.com/tetragramaton/smh-meter/internal/register"
)

// Readings is the result of a bulk read. A key is either in Values or in
// Failed; keys of a block that could not be read are in neither when
// returned by ReadBatch.
type Readings struct {
	Values map[string]any
	Failed map[string]error
}

func newReadings() Readings {
	return Readings{
		Values: make(map[string]any),
		Failed: make(map[string]error),
	}
}

func (r Readings) merge(other Readings) {
	for k, v := range other.Values {
		r.Values[k] = v
	}
	for k, err := range other.Failed {
		r.Failed[k] = err
	}
}

// ReadBatch reads all entries of bank with a single transaction spanning the
// lowest address to the highest end address, then decodes every entry from
// its slice of the block. A failed transaction yields empty readings and the
// error; a failed decode only affects its own key.
func (e *Engine) ReadBatch(bank register.Bank, entries []register.Entry) (Readings, error) {
	out := newReadings()
	members := make([]register.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Bank != bank {
			out.Failed[entry.Key] = fmt.Errorf("%s: lives in %s bank, batch reads %s", entry.Key, entry.Bank, bank)
			continue
		}
		members = append(members, entry)
	}
	if len(members) == 0 {
		return out, nil
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Address < members[j].Address
	})

	lo, hi := register.Span(members)
	if hi-lo > register.MaxBlockWords {
		return newReadings(), fmt.Errorf("batch 0x%04X-0x%04X spans %d words (max %d)", lo, hi, hi-lo, register.MaxBlockWords)
	}
	block, err := e.ReadWords(bank, uint16(lo), uint16(hi-lo))
	if err != nil {
		e.logger.Warn().Err(err).Stringer("bank", bank).Int("keys", len(members)).Msg("batch dropped")
		return newReadings(), err
	}

	for _, entry := range members {
		start := int(entry.Address) - lo
		words := block[start : start+int(entry.Length)]
		value, err := codec.Decode(words, int(entry.Length), entry.DataType, entry.ValueType, e.order)
		if err != nil {
			e.logger.Warn().Err(err).Str("key", entry.Key).Msg("decode failed")
			e.telemetry.IncDecodeFailure(entry.Key)
			out.Failed[entry.Key] = fmt.Errorf("%s: %w", entry.Key, err)
			continue
		}
		out.Values[entry.Key] = value
	}
	return out, nil
}

// ReadAll reads every batched entry of bank. Batch groups are read in
// ascending order starting at 1 until the first group without entries;
// entries with batch group 0 are not read. Keys of a group whose transaction
// failed are reported in Failed. With scaled set, values are scaled and keys
// without a scale are reported in Failed with ErrScalingUndefined.
func (e *Engine) ReadAll(catalog *register.Catalog, bank register.Bank, scaled bool) Readings {
	out := newReadings()
	for group := 1; ; group++ {
		entries := catalog.Group(bank, group)
		if len(entries) == 0 {
			break
		}
		readings, err := e.ReadBatch(bank, entries)
		if err != nil {
			for _, entry := range entries {
				out.Failed[entry.Key] = fmt.Errorf("%s: batch group %d: %w", entry.Key, group, err)
			}
			continue
		}
		out.merge(readings)
	}
	if !scaled {
		return out
	}

	for key, raw := range out.Values {
		d, _ := catalog.Lookup(key)
		value, err := Scale(raw, d.Scale)
		if err != nil {
			delete(out.Values, key)
			out.Failed[key] = fmt.Errorf("%s: %w", key, err)
			continue
		}
		out.Values[key] = value
	}
	return out
}
