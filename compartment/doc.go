// Package compartment implements the compartment transition engine of the
// μCOMP runtime.
//
// Compartment-crossing call sites trap into the engine with a supervisor
// call. On entry the engine resolves the destination policy from the call
// site's metadata, pushes a frame recording the return address owed by the
// callee and a snapshot of the stack region, and reprograms the MPU. On
// exit it checks the return address against the top frame, pops it, and
// restores the caller's protection state.
//
// The engine also keeps the diagnostic per-compartment statistics reset by
// the start control call.
package compartment
