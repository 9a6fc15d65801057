// Package mpu implements the protection-unit driver of the μCOMP runtime.
//
// A Policy is the region set of one compartment, in the exact base-address
// and attribute-word layout of the ARMv7-M MPU. The Driver programs those
// registers through the memory bus, always bracketed by disabling the MPU,
// synchronization barriers, and re-enabling it with interrupts masked.
// One region, the stack region, is never taken verbatim from a policy: its
// subregion-disable mask is recomputed from the stack pointer on every
// compartment transition so that a callee cannot write above its caller's
// stack watermark.
//
// Sim is a register-level model of the MPU, the fault status registers and
// the cycle counter, together with the core state (privilege, PRIMASK)
// that the driver manipulates.
package mpu
