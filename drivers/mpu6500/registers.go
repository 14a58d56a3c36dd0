package mpu6500

// Register map, from the MPU-6500 register datasheet. Only the registers this
// driver touches are listed.
const (
	regSmplrtDiv    = 0x19
	regConfig       = 0x1A
	regGyroConfig   = 0x1B
	regAccelConfig  = 0x1C
	regAccelConfig2 = 0x1D
	regAccelXOutH   = 0x3B
	regGyroXOutH    = 0x43
	regPwrMgmt1     = 0x6B
	regPwrMgmt2     = 0x6C
	regWhoAmI       = 0x75
)

const (
	whoAmI6500 = 0x70
	whoAmI9250 = 0x71
	whoAmI9255 = 0x73

	bitClkPLL = 0x01 // PWR_MGMT_1 clock source: PLL when available

	bitDisableAccel = 0x38 // PWR_MGMT_2 accel XYZ standby
	bitDisableGyro  = 0x07 // PWR_MGMT_2 gyro XYZ standby
)
