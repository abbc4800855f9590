// Package infra contains technical adapters such as the MQTT notifier,
// the solver HTTP client, the plan store and metrics exporters. These
// packages should depend only on the interfaces defined in the core packages.
package infra
