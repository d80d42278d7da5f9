// Package motion runs closed-loop motion commands.
//
// An [Executor] owns one lateral and one angular [control.PID]. Each cycle
// it reads a pose snapshot, computes the errors to the commanded target,
// feeds the controllers, limits and mixes their outputs and commands the
// motors. Cycles are paced by a [Pacer]: a [Ticker] on hardware, or a
// lockstep pacer in simulation.
//
// Only one command runs at a time; a second command while one is active
// fails with [dynamo.ErrMotionBusy].
package motion
