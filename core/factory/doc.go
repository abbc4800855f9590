// Package factory provides a small generic registry used to instantiate modules
// from configuration. A module is described by a type string and a map of raw
// settings; the registered factory decodes the settings into a typed struct
// and returns the concrete implementation.
//
// Metrics sinks are declared this way:
//
//	metrics:
//	  sinks:
//	    - type: prometheus
//	    - type: influx
//	      conf:
//	        url: http://localhost:8086
//	        bucket: portplan
package factory
