// Package display drives the 2-line character LCD. Writes are addressed by
// (row, column); there is no buffering, each mode rewrites the rows it uses.
package display

type Display interface {
	WriteAt(row, col int, text string) error
	Clear() error
}
