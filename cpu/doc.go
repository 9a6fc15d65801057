// Package cpu implements the store-instruction emulator of the μCOMP runtime.
//
// When the MPU denies a store, the fault handler hands the faulting
// instruction word and a snapshot of the register file to Emulate. The
// emulator decodes the Thumb and Thumb-2 store family, computes every
// address the instruction writes, asks the access checker to authorize each
// transfer, performs the writes in architectural order, applies any base
// register writeback, and returns the encoding length so the handler can
// step over the instruction.
//
// Anything outside the supported store family is rejected; the caller is
// expected to halt rather than continue.
package cpu
