package display

import (
	"fmt"
	"time"

	"github.com/gr-butler/plantmon/env"
	logger "github.com/sirupsen/logrus"

	"periph.io/x/conn/v3/i2c"
)

// HD44780 controller behind a PCF8574 I2C expander, driven in 4-bit mode.
// Expander bit layout: P0=RS P1=RW P2=EN P3=backlight P4..P7=D4..D7.
const (
	pinRS        = 0x01
	pinEnable    = 0x04
	pinBacklight = 0x08

	cmdClear       = 0x01
	cmdEntryMode   = 0x06 // cursor moves right, no shift
	cmdDisplayOn   = 0x0C // display on, cursor off, blink off
	cmdFunctionSet = 0x28 // 4-bit, 2 lines, 5x8 font
	cmdSetDDRAM    = 0x80
)

// DDRAM start address of each row on a 16x2 module.
var rowOffsets = [...]byte{0x00, 0x40}

type LCD struct {
	dev  *i2c.Dev
	rows int
	cols int
}

func NewLCD(bus i2c.Bus) (*LCD, error) {
	logger.Infof("Starting LCD I2C [%x]", env.LcdI2C)
	l := &LCD{
		dev:  &i2c.Dev{Addr: env.LcdI2C, Bus: bus},
		rows: env.LcdRows,
		cols: env.LcdCols,
	}

	// 4-bit wake-up sequence, HD44780 datasheet figure 24.
	time.Sleep(time.Millisecond * 50)
	for _, d := range []time.Duration{time.Millisecond * 5, time.Millisecond * 5, time.Microsecond * 150} {
		if err := l.writeNibble(0x30); err != nil {
			return nil, fmt.Errorf("display: lcd init: %w", err)
		}
		time.Sleep(d)
	}
	if err := l.writeNibble(0x20); err != nil {
		return nil, fmt.Errorf("display: lcd init: %w", err)
	}

	for _, cmd := range []byte{cmdFunctionSet, cmdDisplayOn, cmdEntryMode} {
		if err := l.command(cmd); err != nil {
			return nil, fmt.Errorf("display: lcd init: %w", err)
		}
	}
	if err := l.Clear(); err != nil {
		return nil, fmt.Errorf("display: lcd init: %w", err)
	}
	return l, nil
}

// WriteAt writes text on the given row starting at the given column.
func (l *LCD) WriteAt(row, col int, text string) error {
	if row < 0 || row >= l.rows || col < 0 || col >= l.cols {
		return fmt.Errorf("display: position (%d,%d) out of range", row, col)
	}
	if err := l.command(cmdSetDDRAM | (rowOffsets[row] + byte(col))); err != nil {
		return err
	}
	for _, b := range []byte(text) {
		if err := l.data(b); err != nil {
			return err
		}
	}
	return nil
}

func (l *LCD) Clear() error {
	if err := l.command(cmdClear); err != nil {
		return err
	}
	// the clear command is the slow one
	time.Sleep(time.Millisecond * 2)
	return nil
}

func (l *LCD) command(b byte) error {
	return l.write(b, 0)
}

func (l *LCD) data(b byte) error {
	return l.write(b, pinRS)
}

func (l *LCD) write(b, flags byte) error {
	if err := l.writeNibble((b & 0xF0) | flags); err != nil {
		return err
	}
	return l.writeNibble((b << 4 & 0xF0) | flags)
}

func (l *LCD) writeNibble(v byte) error {
	v |= pinBacklight
	// latch on the falling edge of EN
	if err := l.dev.Tx([]byte{v | pinEnable}, nil); err != nil {
		return err
	}
	time.Sleep(time.Microsecond * 50)
	if err := l.dev.Tx([]byte{v}, nil); err != nil {
		return err
	}
	time.Sleep(time.Microsecond * 50)
	return nil
}
