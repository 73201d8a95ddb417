package settings

const (
	CmdName = "sampleprof"
	Version = "0.1.0"

	// DefaultOutputFile is where the latest result is written when no other
	// output handler is set.
	DefaultOutputFile = "profile.txt"
)
