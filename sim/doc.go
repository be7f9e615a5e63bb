// Package sim provides a stochastic stand-in for instrument hardware.
//
// An Environment holds a fleet of simulated devices, each with a nominal value, a
// tolerance and an explicit failure-mode flag. It is used by the equipment controller as
// its measurement strategy whenever no channel is attached, and it can be driven on its
// own to model a fleet without hardware.
//
// All randomness comes from an injected Source, so a seeded Environment replays the same
// measurements.
package sim
