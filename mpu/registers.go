package mpu

// Memory-mapped registers on the private peripheral bus.
const (
	SCB_SHCSR  = 0xE000_ED24 // System handler control and state.
	SCB_CFSR   = 0xE000_ED28 // Configurable fault status.
	SCB_MMAR   = 0xE000_ED34 // MemManage fault address.
	MPU_TYPE   = 0xE000_ED90
	MPU_CTRL   = 0xE000_ED94
	MPU_RNR    = 0xE000_ED98
	MPU_RBAR   = 0xE000_ED9C
	MPU_RASR   = 0xE000_EDA0
	SCB_DEMCR  = 0xE000_EDFC // Debug exception and monitor control.
	DWT_CTRL   = 0xE000_1000
	DWT_CYCCNT = 0xE000_1004
	DWT_EXCCNT = 0xE000_100C
)

// Register fields.
const (
	CTRL_ENABLE     = uint32(1 << 0)
	CTRL_HFNMIENA   = uint32(1 << 1)
	CTRL_PRIVDEFENA = uint32(1 << 2)
	CTRL_DISABLE    = uint32(0)
	// Unprivileged code sees only the programmed regions; the runtime
	// itself keeps the privileged background map.
	CTRL_ACTIVE = CTRL_ENABLE | CTRL_PRIVDEFENA

	CFSR_IACCVIOL  = uint32(1 << 0)
	CFSR_DACCVIOL  = uint32(1 << 1)
	CFSR_MUNSTKERR = uint32(1 << 3)
	CFSR_MSTKERR   = uint32(1 << 4)
	CFSR_MMARVALID = uint32(1 << 7)
	CFSR_DATA      = CFSR_DACCVIOL | CFSR_MMARVALID // Precise data access violation.

	SHCSR_MEMFAULTENA  = uint32(1 << 16)
	DEMCR_MON_EN       = uint32(1 << 16)
	DEMCR_TRCENA       = uint32(1 << 24)
	DWT_CTRL_CYCCNTENA = uint32(1 << 0)
)
