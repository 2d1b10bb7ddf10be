//go:build lite

package tracking

// DriverAvailable is false in lite builds, which leave SQLite out of the
// binary. NewTracker then returns ErrUnavailable.
const DriverAvailable = false
