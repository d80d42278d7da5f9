// Package viz renders the drivebase in the terminal.
//
// [Model] is a Bubble Tea dashboard fed by telemetry snapshots through
// [ProgramSink]. It draws the field on a Braille [Canvas], plots side
// power with asciigraph and doubles as a gamepad: [KeyboardPad] turns held
// keys into tank stick positions.
//
// # Key Bindings
//
//	W/S   - Left stick forward/back
//	I/K   - Right stick forward/back
//	↑/↓   - Both sticks
//	C     - Calibrate (pose to origin)
//	X     - Cancel the running motion
//	Space - Freeze the display
//	?     - Show help overlay
//	Q     - Quit
package viz
