package raysim

import "os"

// ShowHelp prints usage information for the ray simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Parakeet Ray Simulator
======================

Writes 1 into a signal file for the length of each simulated hit and 0
otherwise, so the detector daemon can run with line_source=file.

Usage:
  go run ./cmd/ray-sim [options]

Options:
  -signal string
        Signal file polled by the daemon (default "ray_signal.txt")
  -count int
        Number of rays to emit, 0 for no limit (default 0)
  -min-gap duration
        Shortest pause between rays (default 2s)
  -max-gap duration
        Longest pause between rays (default 5s)
  -min-energy float
        Lowest simulated energy (default 1)
  -max-energy float
        Highest simulated energy (default 10)
  -seed int
        Random seed, 0 for time based (default 0)
  -predefined
        Replay the fixed reference sequence (hits at 1.0s, 4.5s, 6.2s, 8.7s)
  -verbose
        Log every ray
  -help
        Show this help message

Examples:
  # Pair with the daemon in dry-run mode
  PARAKEET_LINE_SOURCE=file go run ./cmd &
  go run ./cmd/ray-sim -verbose
`)
}
