package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" default:"20" help:"Number of generations to show"`
	JSON  bool `help:"Print entries as JSON"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	e, err := setup(root)
	if err != nil {
		return err
	}
	defer e.close()

	if e.cfg.History.Path == "" {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityError, "generation history is disabled").
			WithContext("hint", "set history.path in the configuration")
	}
	store, err := history.Open(e.cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, stop := signalContext()
	defer stop()
	entries, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return err
	}
	return writeHistory(os.Stdout, entries, h.JSON)
}

func writeHistory(w io.Writer, entries []history.Entry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tBUILD\tOUTCOME\tSTAGE\tUNITS\tOUTPUTS\tDURATION\tREVISION")
	for _, en := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			en.StartedAt.Local().Format(time.DateTime), en.BuildID, en.Outcome, dash(en.FailedStage),
			en.Units, en.Outputs, en.Duration.Truncate(time.Millisecond), dash(shortRev(en.Revision)))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
