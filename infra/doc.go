// Package infra contains the technical adapters of the allocation service:
// the MQTT transport, metrics sinks and the logger. These packages depend
// only on the interfaces defined under core.
package infra
