package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftengine/ftengine/internal/forkgc"
	"github.com/ftengine/ftengine/internal/gcstats"
	"github.com/ftengine/ftengine/internal/storeopen"
	"github.com/ftengine/ftengine/internal/ui"
)

type tickMsg time.Time

// model is ftmonitor's Bubble Tea state: a held-open engine refreshed
// on an interval, adapting the teacher's indexingModel tick-driven
// refresh loop (internal/ui's now-removed tui.go) from indexing
// progress to GC/occupancy stats. gcstats.Collector's gauges
// (DocTableSize/CursorsOpen) are safe to re-set every tick; its GC
// round counter is only incremented when LastStats actually changed,
// so polling doesn't inflate the round count.
type model struct {
	opened   *storeopen.Opened
	interval time.Duration
	styles   ui.Styles
	spinner  spinner.Model

	collector *gcstats.Collector
	lastGC    forkgc.Stats
	termCount int
	snapshot  *gcstats.Snapshot

	quitting bool
}

func newModel(opened *storeopen.Opened, interval time.Duration) *model {
	styles := ui.DefaultStyles()
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Active))
	return &model{
		opened:    opened,
		interval:  interval,
		styles:    styles,
		spinner:   s,
		collector: gcstats.New(),
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *model) Init() tea.Cmd {
	m.refresh()
	return tea.Batch(tickCmd(m.interval), m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case tickMsg:
		m.refresh()
		return m, tickCmd(m.interval)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// refresh pulls fresh occupancy and GC figures out of the held-open
// engine and folds them into the collector.
func (m *model) refresh() {
	docCount, termCount := m.opened.Engine.Stats()
	m.termCount = termCount
	m.collector.SetDocTableSize(docCount)
	m.collector.SetCursorsOpen(m.opened.Engine.Cursors().Len())

	gc := m.opened.Engine.GC().LastStats()
	if gc != m.lastGC {
		m.collector.RecordGCRound(gc)
		m.lastGC = gc
	}
	m.snapshot = m.collector.Snapshot()
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}
	if m.snapshot == nil {
		return "loading...\n"
	}

	header := m.styles.Header.Render(m.spinner.View() + " ftengine monitor")
	body := fmt.Sprintf(
		"doc table size : %d\n"+
			"terms indexed  : %d\n"+
			"cursors open   : %d\n"+
			"\n"+
			"last gc round\n"+
			"  blocks repaired  : %d\n"+
			"  blocks freed     : %d\n"+
			"  entries freed    : %d\n"+
			"  numeric sweeps   : %d\n"+
			"  denied (too new) : %d",
		m.snapshot.DocTableSize,
		m.termCount,
		m.snapshot.CursorsOpen,
		m.lastGC.BlocksRepaired,
		m.lastGC.BlocksFreed,
		m.lastGC.EntriesCollected,
		m.lastGC.NumericSweeps,
		m.lastGC.LastBlockDenied,
	)
	panel := m.styles.Panel.Render(body)
	footer := m.styles.Dim.Render("q to quit")

	return strings.Join([]string{header, panel, footer}, "\n\n") + "\n"
}
