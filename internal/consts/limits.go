package consts

import "time"

// Tool output and file limits
const (
	// MaxOutputChars is the default character budget for any tool result
	MaxOutputChars = 30000
	// MaxLinesPerRead is the default number of lines returned by the read tool
	MaxLinesPerRead = 2000
	// MaxReadFileSize is the largest file the read tool will load
	MaxReadFileSize = 10 * 1024 * 1024
	// BinarySniffBytes is how much of a file is inspected for NUL bytes
	BinarySniffBytes = 512
	// TruncateHeadRatio is the share of the budget kept from the start of long output
	TruncateHeadRatio = 0.6
)

// Context window management
const (
	// DefaultMaxContextTokens is the assumed context budget for compaction
	DefaultMaxContextTokens = 120000
	// CompactionThreshold triggers compaction once the estimate exceeds this share of the budget
	CompactionThreshold = 0.75
	// CompactionTarget is the share of the budget the eviction phase shrinks towards
	CompactionTarget = 0.6
	// CompactKeepRecent is how many trailing messages phase one leaves untouched
	CompactKeepRecent = 6
	// CompactMinMessages is the message count at or below which nothing is compacted
	CompactMinMessages = 4
	// CompactResultMinChars is the length above which old tool results are shortened
	CompactResultMinChars = 200
	// CompactResultKeepChars is how much of a shortened tool result survives
	CompactResultKeepChars = 100
	// CharsPerToken is the heuristic used for token estimation
	CharsPerToken = 3
)

// Agent loop defaults
const (
	// DefaultMaxTurns bounds model calls per user input
	DefaultMaxTurns = 10
	// DoomLoopWindow is how many recent tool batches the detector remembers
	DoomLoopWindow = 10
	// DoomLoopRepeats is how many identical consecutive batches count as a loop
	DoomLoopRepeats = 3
	// DefaultMaxTokens is the response token cap passed to providers that need one
	DefaultMaxTokens = 8192
)

// Timeouts for various operations
const (
	// BashDefaultTimeout is the default run time allowed for a shell command
	BashDefaultTimeout = 120 * time.Second
	// BashKillGrace is how long a killed command may take to release its pipes
	BashKillGrace = 2 * time.Second
	// MCPRequestTimeout bounds each wait for an MCP response frame
	MCPRequestTimeout = 60 * time.Second
	// MCPShutdownGrace is how long an MCP server gets to exit after SIGTERM
	MCPShutdownGrace = 2 * time.Second
	// GitCommandTimeout bounds context-gathering git invocations
	GitCommandTimeout = 10 * time.Second
	// DirCacheTTL is how long a cached directory listing stays valid
	DirCacheTTL = 30 * time.Second
)

// Retry defaults
const (
	// RetryMaxAttempts is the number of retries after the first attempt
	RetryMaxAttempts = 3
	// RetryBaseDelay is the first backoff interval
	RetryBaseDelay = 1 * time.Second
	// RetryMaxDelay caps a single backoff interval
	RetryMaxDelay = 30 * time.Second
)
