package notify

import (
	"context"
	"log/slog"
	"strings"
)

// Log implementa ports.Sender volcando la alerta en el logger estructurado.
// Útil con log.format=json, cuando stdout lo recoge un agregador.
type Log struct {
	logger *slog.Logger
}

// NewLog crea un sender sobre el logger dado; nil usa slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Send(ctx context.Context, text string) error {
	l.logger.InfoContext(ctx, "alert",
		"lines", strings.Count(text, "\n")+1,
		"text", text,
	)
	return nil
}
