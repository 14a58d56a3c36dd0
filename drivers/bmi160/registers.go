package bmi160

// Register map, from the Bosch BMI160 datasheet.
const (
	regChipID    = 0x00
	regGyroData  = 0x0C
	regAccelData = 0x12
	regAccConf   = 0x40
	regAccRange  = 0x41
	regGyrConf   = 0x42
	regGyrRange  = 0x43
	regCmd       = 0x7E
)

const (
	chipIDBMI160 = 0xD1
	chipIDBMX160 = 0xD8

	cmdAccelNormal  = 0x11
	cmdAccelSuspend = 0x10
	cmdGyroNormal   = 0x15
	cmdGyroSuspend  = 0x14

	confBWNormal = 0x20 // normal bandwidth filter mode in ACC_CONF/GYR_CONF

	accRange2G  = 0x03
	accRange4G  = 0x05
	accRange8G  = 0x08
	accRange16G = 0x0C

	gyrRange2000 = 0x00
	gyrRange1000 = 0x01
	gyrRange500  = 0x02
	gyrRange250  = 0x03
	gyrRange125  = 0x04

	odr25Hz   = 0x06
	odr50Hz   = 0x07
	odr100Hz  = 0x08
	odr200Hz  = 0x09
	odr400Hz  = 0x0A
	odr800Hz  = 0x0B
	odr1600Hz = 0x0C
)
