package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/ThiagoRGoveia/apt-trades/internal/ingestion"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printSummary(s *ingestion.Summary) {
	t := newTable()
	t.SetTitle(fmt.Sprintf("%s run", s.Mode))
	t.AppendRows([]table.Row{
		{"Planned", s.Planned},
		{"Attempted", s.Attempted},
		{"Loaded", s.Loaded},
		{"Repaired", s.Repaired},
		{"Empty", s.Empty},
		{"Failed", s.Failed},
		{"Suspect", s.Suspect},
		{"Unresolved", len(s.Unresolved)},
		{"Rows", s.Rows},
		{"Elapsed", s.Elapsed.Round(time.Millisecond)},
	})
	if s.Halted {
		t.AppendSeparator()
		t.AppendRow(table.Row{text.FgYellow.Sprint("Halted"), s.HaltReason})
		t.AppendRow(table.Row{"Remaining", s.Remaining})
	}
	t.Render()

	if len(s.Failures) > 0 {
		ft := newTable()
		ft.SetTitle("Failed units")
		ft.AppendHeader(table.Row{"Unit", "Stage", "Error"})
		for _, f := range s.Failures {
			ft.AppendRow(table.Row{f.Unit.String(), f.Stage, f.Err.Error()})
		}
		ft.Render()
	}

	for _, ri := range s.Incomplete() {
		state := "rows may be missing until the next repair"
		if ri.Retained {
			state = "prior rows retained"
		}
		fmt.Fprintln(os.Stdout, text.FgRed.Sprintf("REPAIR INCOMPLETE %s: %s", ri.Unit, state))
	}

	if len(s.Unresolved) > 0 {
		ut := newTable()
		ut.SetTitle("Unresolved truncation")
		ut.AppendHeader(table.Row{"Period", "Region", "Name"})
		for _, u := range s.Unresolved {
			ut.AppendRow(table.Row{u.Period.String(), u.Region.Code, u.Region.Name})
		}
		ut.Render()
	}
}
