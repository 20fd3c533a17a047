// Package report renders finished matches and batch runs as ASCII tables
// for the CLI.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/null-channel/ai-arena/internal/batch"
	"github.com/null-channel/ai-arena/internal/engine"
)

const bannerWidth = 80

func banner(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", bannerWidth))
}

func rule(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("-", bannerWidth))
}

// WriteMatch renders one finished match: header banner, outcome summary,
// the turn-by-turn table and the per-player table.
func WriteMatch(w io.Writer, result *engine.MatchResult) {
	fmt.Fprintln(w)
	banner(w)
	fmt.Fprintf(w, "MATCH RESULTS: %s (%s)\n", result.GameID, result.MatchID)
	banner(w)

	writeSummary(w, result)
	writeTurnTable(w, result)
	writePlayerTable(w, result)

	fmt.Fprintln(w)
	banner(w)
}

func writeSummary(w io.Writer, result *engine.MatchResult) {
	fmt.Fprintln(w, "\nMATCH SUMMARY")
	rule(w)

	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
	}
	switch {
	case result.Outcome.Kind == engine.OutcomeForfeit && result.Outcome.ForfeitedBy != nil:
		name, _ := result.WinnerName()
		fmt.Fprintf(w, "Winner: %s (%s forfeited)\n", name, result.Players[*result.Outcome.ForfeitedBy].Agent)
	case result.Outcome.Winner != nil:
		name, _ := result.WinnerName()
		fmt.Fprintf(w, "Winner: %s\n", name)
	case result.Outcome.Kind == engine.OutcomeDraw:
		fmt.Fprintln(w, "Result: Draw")
	default:
		fmt.Fprintln(w, "Result: Incomplete")
	}

	fmt.Fprintf(w, "Total Duration: %.2fs\n", float64(result.DurationMS)/1000.0)
	fmt.Fprintf(w, "Total Turns: %d\n", result.TotalTurns)
	if result.TotalTurns > 0 {
		latency := result.Stats[0].TotalLatencyMS + result.Stats[1].TotalLatencyMS
		fmt.Fprintf(w, "Average Turn Time: %.2fms\n", float64(latency)/float64(result.TotalTurns))
	}
	fmt.Fprintf(w, "Invalid Attempts: %d\n", result.Stats[0].InvalidAttempts+result.Stats[1].InvalidAttempts)
}

func writeTurnTable(w io.Writer, result *engine.MatchResult) {
	if len(result.Turns) == 0 {
		return
	}
	fmt.Fprintln(w, "\nTURN BY TURN")
	rule(w)

	table := newTable(w, []string{"Turn", "Player", "Move", "Attempts", "Time (ms)", "Status", "Reason"})
	for _, turn := range result.Turns {
		move := turn.AcceptedMove
		status := "ok"
		if turn.Forfeited {
			move = "-"
			status = "forfeit"
		}
		var latency int64
		reason := "-"
		for _, a := range turn.Attempts {
			latency += a.LatencyMS
			if a.Error != "" {
				reason = truncate(a.Error, 30)
			}
		}
		table.Append([]string{
			strconv.Itoa(turn.TurnIndex),
			turn.Agent,
			move,
			strconv.Itoa(len(turn.Attempts)),
			strconv.FormatInt(latency, 10),
			status,
			reason,
		})
	}
	table.Render()
}

func writePlayerTable(w io.Writer, result *engine.MatchResult) {
	if result.TotalTurns == 0 && len(result.Turns) == 0 {
		return
	}
	fmt.Fprintln(w, "\nPLAYER STATISTICS")
	rule(w)

	table := newTable(w, []string{"Player", "Turns", "Valid", "Invalid", "Timeouts", "Errors", "Total (ms)", "Avg (ms)"})
	for _, s := range result.Stats {
		table.Append([]string{
			s.Agent,
			strconv.Itoa(s.TurnsTaken),
			strconv.Itoa(s.ValidMoves),
			strconv.Itoa(s.InvalidAttempts),
			strconv.Itoa(s.Timeouts),
			strconv.Itoa(s.BackendErrors),
			strconv.FormatInt(s.TotalLatencyMS, 10),
			fmt.Sprintf("%.2f", s.AvgLatencyMS),
		})
	}
	table.Render()
}

// WriteBatchHeader announces a batch before it runs.
func WriteBatchHeader(w io.Writer, source string, specs int) {
	fmt.Fprintln(w)
	banner(w)
	fmt.Fprintln(w, "CSV BATCH RUN")
	fmt.Fprintf(w, "Found %d match spec(s) in %s\n", specs, source)
	banner(w)
}

// WriteBatchReport renders the outcome table of a finished batch.
func WriteBatchReport(w io.Writer, rep *batch.Report) {
	fmt.Fprintln(w)
	banner(w)
	fmt.Fprintln(w, "BATCH RUN COMPLETE")
	fmt.Fprintf(w, "Entries: %d  Failed: %d  Duration: %.2fs  Estimated Cost: %s\n",
		len(rep.Entries), rep.Failed(), rep.Duration.Seconds(), costCell(rep.TotalCost()))
	banner(w)

	if len(rep.Entries) == 0 {
		return
	}

	table := newTable(w, []string{"Entry", "Game", "Description", "Outcome", "Turns", "Duration", "Cost"})
	for i := range rep.Entries {
		e := &rep.Entries[i]
		turns, duration := "-", "-"
		if e.Result != nil {
			turns = strconv.Itoa(e.Result.TotalTurns)
			duration = fmt.Sprintf("%.2fs", float64(e.Result.DurationMS)/1000.0)
		}
		table.Append([]string{
			fmt.Sprintf("%d.%d", e.SpecIndex+1, e.Repetition+1),
			e.Spec.Game,
			e.Spec.Description,
			entryOutcome(e),
			turns,
			duration,
			costCell(e.Cost()),
		})
	}
	table.Render()
}

func entryOutcome(e *batch.Entry) string {
	if e.Err != nil {
		return "error: " + truncate(e.Err.Error(), 40)
	}
	r := e.Result
	switch r.Outcome.Kind {
	case engine.OutcomeWin:
		name, _ := r.WinnerName()
		return "winner: " + name
	case engine.OutcomeForfeit:
		name, _ := r.WinnerName()
		return "winner: " + name + " (forfeit)"
	case engine.OutcomeDraw:
		return "draw"
	}
	return "incomplete"
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func costCell(c decimal.Decimal) string {
	if c.IsZero() {
		return "-"
	}
	return "$" + c.StringFixed(4)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
