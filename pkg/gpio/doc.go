// Package gpio defines the digital output abstraction that relay channels
// and the external power rail are driven through.
//
// Raw pin access is board specific and lives outside this module. Callers
// supply a Pin implementation per output; SimPin is an in-memory
// implementation used for simulation and tests.
package gpio

//go:generate mockery --name Pin --output mocks --outpkg mocks --with-expecter
