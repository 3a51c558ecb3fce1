package env

import "time"

const (
	GPIO17 = "GPIO17"
	GPIO20 = "GPIO20"
	GPIO22 = "GPIO22"
	GPIO27 = "GPIO27"

	// Buttons are momentary switches to ground, read active low with the
	// internal pull-ups enabled.
	ButtonUpIn     = GPIO17
	ButtonDownIn   = GPIO27
	ButtonSelectIn = GPIO22

	ActivityLed = GPIO20

	// I2C addresses. The LCD sits behind a PCF8574 backpack.
	LcdI2C    uint16 = 0x27
	Bme280I2C uint16 = 0x76

	LcdRows = 2
	LcdCols = 16

	// Soil probe reads are averaged over a short burst to settle the
	// capacitive sensor noise.
	SoilSampleBurst = 8

	PollInterval   = time.Millisecond * 100
	DebounceWindow = time.Millisecond * 250

	LEDFlashDuration = time.Millisecond * 50
)
