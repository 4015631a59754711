// Package channel manages the named relay outputs that switch heating and
// cooling stages, and the interlock gating their shared supply.
//
// A Registry is built once at startup from an ordered list of channel
// definitions and lives for the process lifetime. All output changes go
// through Set or SetBatch; Run consumes interlock expiry signals and forces
// every output off when the rail deadline passes.
//
// Channel ids are matched case-insensitively and must be unique.
package channel
