package engine

// ExitCode computes the status crux exits with. With mask set, the
// default, the command's own code passes through unchanged. Without it the
// code collapses to 0 or 1: success and failure survive but the specific
// code does not.
func ExitCode(original int, mask bool) int {
	if mask || original == 0 {
		return original
	}
	return 1
}
