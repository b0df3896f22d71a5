// ABOUTME: Store configuration and the option-map surface consumed from callers
// ABOUTME: Recognises db_mod, db_file, expire, days, rm_exp and max; ignores the rest

package feedstore

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/2389/feedstore/internal/kv"
	"github.com/2389/feedstore/internal/retention"
)

// Option keys recognised by ParseOptions.
const (
	KeyBackend       = "db_mod"
	KeyFile          = "db_file"
	KeyExpire        = "expire"
	KeyDays          = "days"
	KeyRemoveExpired = "rm_exp"
	KeyMax           = "max"
)

// DefaultName is the well-known store name the default file is derived from.
const DefaultName = "feedstore"

// DefaultDays is the expiry window when none is configured.
const DefaultDays = 7

// Options configure a store. The zero value is usable: it opens the default
// file with no expiry and no capacity limit.
type Options struct {
	// Backend, when set, makes Open forward to it and leave local state alone.
	Backend Backend
	// File is the store file. Empty means kv.DefaultFile(DefaultName).
	File string
	// Expire selects age-based expiry.
	Expire retention.ExpireMode
	// Days is the expiry window for retention.ExpireByDays.
	Days int
	// RemoveExpired allows Tidy to delete expired items. Retrieve only hides them.
	RemoveExpired bool
	// MaxItems is the slot capacity. retention.Unbounded disables wraparound.
	MaxItems int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		File:     kv.DefaultFile(DefaultName),
		Expire:   retention.ExpireNone,
		Days:     DefaultDays,
		MaxItems: retention.Unbounded,
	}
}

func (o Options) withDefaults() Options {
	if o.File == "" {
		o.File = kv.DefaultFile(DefaultName)
	}
	return o
}

// Policy returns the expiry policy described by the options.
func (o Options) Policy() retention.Policy {
	return retention.Policy{Expire: o.Expire, Days: o.Days}
}

// ParseOptions builds Options from a loosely typed option map. Unknown keys
// are ignored and absent keys keep their defaults.
func ParseOptions(m map[string]any) (Options, error) {
	opts := DefaultOptions()

	for key, v := range m {
		switch key {
		case KeyBackend:
			if v == nil {
				continue
			}
			b, ok := v.(Backend)
			if !ok {
				return Options{}, invalidOption(key, v)
			}
			opts.Backend = b

		case KeyFile:
			s, ok := v.(string)
			if !ok {
				return Options{}, invalidOption(key, v)
			}
			opts.File = s

		case KeyExpire:
			mode, err := parseExpire(v)
			if err != nil {
				return Options{}, fmt.Errorf("%w: %s: %v", ErrInvalidOption, key, err)
			}
			opts.Expire = mode

		case KeyDays:
			n, ok := toInt(v)
			if !ok || n < 0 {
				return Options{}, invalidOption(key, v)
			}
			opts.Days = n

		case KeyRemoveExpired:
			b, ok := v.(bool)
			if !ok {
				return Options{}, invalidOption(key, v)
			}
			opts.RemoveExpired = b

		case KeyMax:
			n, err := parseMax(v)
			if err != nil {
				return Options{}, invalidOption(key, v)
			}
			opts.MaxItems = n
		}
	}

	return opts, nil
}

func invalidOption(key string, v any) error {
	return fmt.Errorf("%w: %s = %#v", ErrInvalidOption, key, v)
}

func parseExpire(v any) (retention.ExpireMode, error) {
	switch x := v.(type) {
	case retention.ExpireMode:
		return x, nil
	case string:
		return retention.ParseExpireMode(x)
	case bool:
		if !x {
			return retention.ExpireNone, nil
		}
	}
	return retention.ExpireNone, fmt.Errorf("unsupported value %#v", v)
}

func parseMax(v any) (int, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "infinity", "unbounded", "unlimited":
			return retention.Unbounded, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("bad max %q", s)
		}
		return n, nil
	}
	n, ok := toInt(v)
	if !ok || n < 0 {
		return 0, fmt.Errorf("bad max %#v", v)
	}
	return n, nil
}

// toInt accepts the integer shapes produced by Go callers and by YAML, TOML
// and JSON decoders.
func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		if x > math.MaxInt {
			return 0, false
		}
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	default:
		return 0, false
	}
}
