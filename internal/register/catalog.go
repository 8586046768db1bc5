package register

import (
	"errors"
	"fmt"
	"sort"
)

// MaxBlockWords is the largest register block a single read request may carry.
const MaxBlockWords = 125

// ErrInvalidCatalog is returned when a register table fails validation.
var ErrInvalidCatalog = errors.New("invalid register catalog")

// Catalog is an immutable key to descriptor mapping for one device model.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// NewCatalog validates the entries and builds a catalog from them.
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: append([]Entry(nil), entries...),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range c.entries {
		if e.Key == "" {
			return nil, fmt.Errorf("%w: entry %d has no key", ErrInvalidCatalog, i)
		}
		if _, dup := c.index[e.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidCatalog, e.Key)
		}
		c.index[e.Key] = i
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustCatalog is NewCatalog for compiled-in tables.
func MustCatalog(entries []Entry) *Catalog {
	c, err := NewCatalog(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Lookup returns the descriptor registered under key.
func (c *Catalog) Lookup(key string) (Descriptor, bool) {
	if c == nil {
		return Descriptor{}, false
	}
	i, ok := c.index[key]
	if !ok {
		return Descriptor{}, false
	}
	return c.entries[i].Descriptor, true
}

// Entries returns a copy of all entries in declaration order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	return append([]Entry(nil), c.entries...)
}

// Keys returns all keys in declaration order.
func (c *Catalog) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.Key
	}
	return keys
}

// Bank returns the entries that live in bank.
func (c *Catalog) Bank(bank Bank) []Entry {
	if c == nil {
		return nil
	}
	var out []Entry
	for _, e := range c.entries {
		if e.Bank == bank {
			out = append(out, e)
		}
	}
	return out
}

// Group returns the entries of bank tagged with batch group.
func (c *Catalog) Group(bank Bank, group int) []Entry {
	if c == nil {
		return nil
	}
	var out []Entry
	for _, e := range c.entries {
		if e.Bank == bank && e.BatchGroup == group {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the invariants bulk reads rely on.
func (c *Catalog) Validate() error {
	if c == nil {
		return nil
	}
	type groupKey struct {
		bank  Bank
		group int
	}
	groups := make(map[groupKey][]Entry)
	for _, e := range c.entries {
		if e.Bank != Input && e.Bank != Holding {
			return fmt.Errorf("%w: %s: unknown bank %d", ErrInvalidCatalog, e.Key, e.Bank)
		}
		if e.Length == 0 {
			return fmt.Errorf("%w: %s: zero length", ErrInvalidCatalog, e.Key)
		}
		if e.End() > 0x10000 {
			return fmt.Errorf("%w: %s: range 0x%04X+%d exceeds address space", ErrInvalidCatalog, e.Key, e.Address, e.Length)
		}
		if _, ok := dataTypeNames[e.DataType]; !ok {
			return fmt.Errorf("%w: %s: unknown data type %d", ErrInvalidCatalog, e.Key, e.DataType)
		}
		if w := e.DataType.Words(); w != 0 && w != int(e.Length) {
			return fmt.Errorf("%w: %s: %s needs %d words, length is %d", ErrInvalidCatalog, e.Key, e.DataType, w, e.Length)
		}
		if e.Scale != nil && e.Scale.Factor == 0 {
			return fmt.Errorf("%w: %s: zero scale factor", ErrInvalidCatalog, e.Key)
		}
		if e.BatchGroup < 0 {
			return fmt.Errorf("%w: %s: negative batch group", ErrInvalidCatalog, e.Key)
		}
		if e.BatchGroup > 0 {
			k := groupKey{bank: e.Bank, group: e.BatchGroup}
			groups[k] = append(groups[k], e)
		}
	}
	for k, members := range groups {
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Address < members[j].Address
		})
		for i := 1; i < len(members); i++ {
			if members[i-1].Overlaps(members[i].Descriptor) {
				return fmt.Errorf("%w: %s and %s overlap in %s batch group %d", ErrInvalidCatalog, members[i-1].Key, members[i].Key, k.bank, k.group)
			}
		}
		lo, hi := Span(members)
		if hi-lo > MaxBlockWords {
			return fmt.Errorf("%w: %s batch group %d spans %d words (max %d)", ErrInvalidCatalog, k.bank, k.group, hi-lo, MaxBlockWords)
		}
	}
	return nil
}

// Span returns the smallest [lo, hi) word range covering all entries.
func Span(entries []Entry) (lo, hi int) {
	for i, e := range entries {
		if i == 0 || int(e.Address) < lo {
			lo = int(e.Address)
		}
		if i == 0 || e.End() > hi {
			hi = e.End()
		}
	}
	return lo, hi
}
