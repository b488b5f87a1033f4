package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	journaldto "drillsync/internal/modules/journal/dto"
	outboxdto "drillsync/internal/modules/outbox/dto"
	"drillsync/internal/ui/theme"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

func renderSession(w io.Writer, title string, s journaldto.SessionOutput) {
	items := "-"
	if len(s.Items) > 0 {
		items = strings.Join(s.Items, " ")
	}
	_, _ = fmt.Fprintln(w, theme.Title.Render(title))
	_, _ = fmt.Fprintf(w, "  %s %s  %s %d  %s %s\n",
		theme.Label.Render("mode"), s.Mode,
		theme.Label.Render("difficulty"), s.Difficulty,
		theme.Label.Render("items"), items)
	_, _ = fmt.Fprintf(w, "  %s %d  %s %d  %s %d\n",
		theme.Label.Render("score"), s.Score,
		theme.Label.Render("attempts"), s.Attempts,
		theme.Label.Render("streak"), s.Streak)
	_, _ = fmt.Fprintln(w, theme.Muted.Render(fmt.Sprintf("  started %s, updated %s",
		s.StartTime.Format(time.RFC3339), s.LastUpdateTime.Format(time.RFC3339))))
}

func renderAnswer(w io.Writer, correct bool, out journaldto.AnswerOutput) {
	mark := theme.Bad.Render("wrong")
	if correct {
		mark = theme.OK.Render("right")
	}
	line := fmt.Sprintf("%s score=%d attempts=%d streak=%d", mark, out.Session.Score, out.Session.Attempts, out.Session.Streak)
	if out.Persisted {
		line += " " + theme.Muted.Render("(checkpoint saved)")
	}
	_, _ = fmt.Fprintln(w, line)
}

func renderSuspend(w io.Writer, out journaldto.SuspendOutput) {
	if out.Persisted {
		_, _ = fmt.Fprintln(w, theme.Muted.Render("session suspended, checkpoint saved"))
		return
	}
	_, _ = fmt.Fprintln(w, theme.Hot.Render("session suspended, checkpoint not saved"))
}

func renderComplete(w io.Writer, out journaldto.CompleteOutput) {
	_, _ = fmt.Fprintf(w, "%s score=%d attempts=%d\n", theme.OK.Render("session complete"), out.Session.Score, out.Session.Attempts)
	_, _ = fmt.Fprintf(w, "  queued %s, delivered %d\n", strings.Join(out.Queued, ", "), out.Delivered)
}

func renderStatus(w io.Writer, out journaldto.StatusOutput) {
	lines := []string{
		fmt.Sprintf("%s %s", theme.Label.Render("state"), out.State),
		fmt.Sprintf("%s %d", theme.Label.Render("unsaved"), out.Unsaved),
		fmt.Sprintf("%s %t", theme.Label.Render("offered"), out.Offered),
	}
	if out.Session != nil {
		lines = append(lines, fmt.Sprintf("%s %s score=%d attempts=%d streak=%d",
			theme.Label.Render("session"), out.Session.Mode, out.Session.Score, out.Session.Attempts, out.Session.Streak))
	}
	_, _ = fmt.Fprintln(w, theme.Box.Render(strings.Join(lines, "\n")))
}

func renderEnqueue(w io.Writer, out outboxdto.EnqueueOutput) {
	_, _ = fmt.Fprintf(w, "queued %s %s\n", theme.Hot.Render(out.Item.Action), out.Item.ID)
	renderDrain(w, out.Drain)
}

func renderDrain(w io.Writer, out outboxdto.DrainOutput) {
	if !out.Ran {
		_, _ = fmt.Fprintln(w, theme.Muted.Render(fmt.Sprintf("drain skipped: %s (%d queued)", out.Skipped, out.Remaining)))
		return
	}
	_, _ = fmt.Fprintf(w, "%s delivered=%d failed=%d remaining=%d\n",
		theme.Title.Render("drain"), len(out.Delivered), len(out.Failed), out.Remaining)
	for _, id := range out.Failed {
		_, _ = fmt.Fprintf(w, "  %s %s\n", theme.Bad.Render("kept"), id)
	}
}

func renderNetwork(w io.Writer, out outboxdto.NetworkOutput) {
	state := theme.Bad.Render("offline")
	if out.Connected {
		state = theme.OK.Render("online")
	}
	_, _ = fmt.Fprintf(w, "%s reachable=%s transport=%s\n", state, out.Reachable, out.Transport)
}

func renderList(w io.Writer, format string, out outboxdto.ListOutput) error {
	switch strings.ToLower(format) {
	case formatJSON:
		raw, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encode outbox json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(raw))
		return err
	case formatYAML:
		raw, err := yaml.Marshal(out)
		if err != nil {
			return fmt.Errorf("encode outbox yaml: %w", err)
		}
		_, err = w.Write(raw)
		return err
	case formatTable, "":
	default:
		return fmt.Errorf("unknown format %q (want table|yaml|json)", format)
	}

	renderNetwork(w, out.Network)
	if len(out.Items) == 0 {
		_, _ = fmt.Fprintln(w, theme.Muted.Render("outbox is empty"))
		return nil
	}
	header := theme.Column("ID", 22) + theme.Column("ACTION", 16) + theme.Column("QUEUED", 22) + "DATA"
	_, _ = fmt.Fprintln(w, theme.Title.Render(header))
	for _, item := range out.Items {
		_, _ = fmt.Fprintln(w, theme.Column(item.ID, 22)+
			theme.Column(item.Action, 16)+
			theme.Column(item.Timestamp.Format(time.RFC3339), 22)+
			theme.Muted.Render(item.Payload))
	}
	if out.Busy {
		_, _ = fmt.Fprintln(w, theme.Hot.Render("a drain is in progress"))
	}
	return nil
}
