package main

import "time"

// Process exit codes
const (
	exitOK     = 0 // quit, end of input, signal, or device-open failure
	exitConfig = 1 // unusable configuration
)

const exitStatusHelp = `
Exit status:
  0  quit, end of input, signal, or device open/start failure
  1  configuration error (nothing was opened)`

// Metrics endpoint
const (
	metricsPath            = "/metrics"
	metricsReadTimeout     = 10 * time.Second
	metricsShutdownTimeout = 5 * time.Second
)
