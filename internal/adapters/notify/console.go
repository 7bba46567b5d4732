package notify

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Console implementa ports.Sender escribiendo la alerta tal cual en un io.Writer.
type Console struct {
	out io.Writer
}

// NewConsole crea un sender que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un sender para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

func (c *Console) Name() string { return "console" }

// Send imprime el texto seguido de un salto de línea.
func (c *Console) Send(_ context.Context, text string) error {
	if _, err := fmt.Fprintln(c.out, text); err != nil {
		return fmt.Errorf("console.Send: %w", err)
	}
	return nil
}
