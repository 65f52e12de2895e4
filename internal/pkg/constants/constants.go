// Package constants provides shared defaults used across lcdissect components.
package constants

// Dissection limits
const (
	// DefaultMaxTreeItems caps the items one frame's tree may hold.
	// A decoder looping on corrupt input hits this instead of exhausting memory.
	DefaultMaxTreeItems = 1_000_000

	// DefaultMaxFrameSize is the largest captured frame the read command
	// dissects. Larger records are skipped with a warning.
	DefaultMaxFrameSize = "256KB"

	// DefaultWorkers is the number of frames dissected in parallel.
	DefaultWorkers = 1

	// DefaultOutputFormat is used when neither flag nor config selects one.
	DefaultOutputFormat = "text"
)

// Channel buffer sizes
const (
	// SignalChannelBuffer is the buffer size for OS signal channels.
	// Signals are infrequent and must never block the sender.
	SignalChannelBuffer = 1

	// FrameChannelBuffer is the buffer size between the pcap reader and the
	// dissection workers.
	FrameChannelBuffer = 100
)

// Config keys
const (
	ConfigLogLevel      = "log.level"
	ConfigMaxTreeItems  = "dissect.max_tree_items"
	ConfigMaxFrameSize  = "dissect.max_frame_size"
	ConfigWorkers       = "dissect.workers"
	ConfigOutputFormat  = "output.format"
	ConfigOutputNoColor = "output.no_color"
)
