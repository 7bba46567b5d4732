package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polyexpiry/config"
	"github.com/alejandrodnm/polyexpiry/internal/adapters/storage"
	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

const historyWindow = 24 * time.Hour

// printHistory imprime los polls del journal de las últimas 24h.
func printHistory(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.Storage.DSN == "" {
		return errors.New("history: storage.dsn is not configured")
	}
	db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	to := time.Now().UTC()
	polls, err := db.GetHistory(ctx, to.Add(-historyWindow), to)
	if err != nil {
		return err
	}
	return renderHistory(out, polls)
}

func renderHistory(out io.Writer, polls []domain.PollRecord) error {
	if len(polls) == 0 {
		fmt.Fprintln(out, "no polls in the last 24h")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header("Started (UTC)", "Source", "Attempts", "Fetched", "Matched", "Duration", "Error")
	for _, p := range polls {
		if err := table.Append(
			p.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			p.Source,
			fmt.Sprintf("%d", p.Attempts),
			fmt.Sprintf("%d", p.Fetched),
			fmt.Sprintf("%d", len(p.Matched)),
			p.Duration.Round(time.Millisecond).String(),
			domain.TruncateQuestion(p.Err, "-", 50),
		); err != nil {
			return fmt.Errorf("history: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("history: %w", err)
	}

	alerted := 0
	for _, p := range polls {
		for _, m := range p.Matched {
			if alerted == 0 {
				fmt.Fprintln(out, "\nAlerted markets:")
			}
			alerted++
			fmt.Fprintf(out, "  %s  %s (%s)\n", p.StartedAt.UTC().Format("15:04"), m.Question, m.Slug)
		}
	}
	return nil
}
