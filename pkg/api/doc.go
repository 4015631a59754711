// Package api registers the controller's HTTP endpoints.
//
// Every endpoint runs behind the DOS guard. All /api endpoints also
// require Basic authentication.
//
//	GET  /                        index page
//	GET  /ping                    "pong"
//	GET  /api/get_channel_states  channel table as JSON
//	POST /api/set_channel_states  apply channel changes in document order
//	GET  /api/get_relay_pwr       rail state and time left
//	POST /api/set_relay_pwr       enable or disable the rail
//	POST /api/shutdown            record a shutdown request
package api
