// Package buttons reads the three momentary buttons. Pins are wired to
// ground and read active low with the internal pull-ups.
package buttons

import (
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

type Button struct {
	name   string
	pin    gpio.PinIO
	window time.Duration
	last   time.Time
}

func NewButton(name string, pinName string, window time.Duration) (*Button, error) {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("buttons: failed to find %v - %v pin", pinName, name)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("buttons: %v: %w", name, err)
	}
	logger.Infof("Button [%v] on %s", name, pin)
	return &Button{name: name, pin: pin, window: window}, nil
}

// Pressed reports a debounced press. The debounce is a timestamp window,
// not a blocking delay: repeated presses inside the window are ignored and
// the poll loop keeps running.
func (b *Button) Pressed(now time.Time) bool {
	if b.pin.Read() != gpio.Low {
		return false
	}
	if !b.last.IsZero() && now.Sub(b.last) < b.window {
		return false
	}
	b.last = now
	return true
}

// Held reports the raw, undebounced level. Used once at power-on for the
// calibration mode check.
func (b *Button) Held() bool {
	return b.pin.Read() == gpio.Low
}
