package viz

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/tankdrive/internal/telemetry"
)

// SnapshotMsg carries one telemetry snapshot into the dashboard.
type SnapshotMsg telemetry.Snapshot

// Sender is the part of *tea.Program a ProgramSink needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramSink forwards telemetry snapshots into a running Bubble Tea
// program.
type ProgramSink struct {
	p Sender
}

func NewProgramSink(p Sender) *ProgramSink {
	return &ProgramSink{p: p}
}

func (s *ProgramSink) Publish(snap telemetry.Snapshot) error {
	s.p.Send(SnapshotMsg(snap))
	return nil
}
