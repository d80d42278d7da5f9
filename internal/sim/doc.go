// Package sim provides a simulated drivebase implementing the hw
// interfaces over the differential-drive plant, plus a lockstep pacer that
// advances simulated time one control cycle per wait.
package sim
