// Package acl implements the access-control check consulted by the store
// emulator before every emulated write.
//
// An Enforcer answers from per-compartment tables of half-open address
// intervals, loaded from the flash lookup table the image linker writes.
// A Recorder permits everything and instead grows, per compartment, the
// minimal set of word-aligned intervals covering the addresses it was asked
// about, so that a run in recording mode yields the tables an enforcing run
// needs.
package acl
