package metrics

import (
	"fmt"
	"strings"

	"github.com/portlogistics/portplan/core/factory"
)

var sinkRegistry = factory.NewRegistry[Sink]()

// RegisterSink adds a sink factory under name. infra/metrics registers the
// nop, prometheus and influx sinks at init.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// NewSink builds the sinks listed under metrics.sinks. No entry yields a
// NopSink, one entry its sink and several a MultiSink. A sink type may appear
// once. When a sink fails to build, the ones already built are closed.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		s, err := sinkRegistry.Create(cfgs[0])
		if err != nil {
			return nil, fmt.Errorf("metrics sink %q: %w", cfgs[0].Type, err)
		}
		return s, nil
	}
	seen := make(map[string]bool, len(cfgs))
	built := NewMultiSink()
	for _, c := range cfgs {
		key := strings.ToLower(c.Type)
		if seen[key] {
			built.Close()
			return nil, fmt.Errorf("metrics sink %q configured twice", c.Type)
		}
		seen[key] = true
		s, err := sinkRegistry.Create(c)
		if err != nil {
			built.Close()
			return nil, fmt.Errorf("metrics sink %q: %w", c.Type, err)
		}
		built.Sinks = append(built.Sinks, s)
	}
	return built, nil
}
