package domain

import "time"

// PollRecord resume un poll completo. Se registra en el journal y en los logs;
// el pipeline nunca lo lee de vuelta.
type PollRecord struct {
	ID        string
	Source    string
	StartedAt time.Time
	Duration  time.Duration
	Attempts  int
	Fetched   int
	Matched   []Market
	Err       string // vacío si el poll terminó bien
}
