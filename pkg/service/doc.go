// Package service wires the controller together and owns its lifecycle.
//
// A Controller builds the relay channels, the rail interlock, the DOS guard,
// the HTTP front end and API, the TCP listener, metrics, the mDNS
// advertisement and the watchdog from one configuration.
//
// Example usage:
//
//	cfg, err := config.Load("therminator.yaml")
//	ctrl, err := service.NewController(service.ControllerConfig{Settings: cfg})
//	ctrl.Start(ctx)
//	defer ctrl.Stop()
//
// The watchdog feeder only feeds while the registry supervisor keeps
// taking turns, so a stalled supervisor lets the deadman reset the device.
package service
