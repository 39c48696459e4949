package telemetry

import (
	"fmt"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ParseOptions decodes explicit telemetry options from a JSON document,
// e.g. {"tracing": {"enabled": true, "sampling_ratio": 0.5}}. Fields left
// out stay nil and resolve from the environment.
func ParseOptions(raw []byte) (*Options, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(raw), json.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse telemetry options: %w", err)
	}
	var opts Options
	if err := k.Unmarshal("", &opts); err != nil {
		return nil, fmt.Errorf("failed to decode telemetry options: %w", err)
	}
	return &opts, nil
}
