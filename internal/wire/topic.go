package wire

// Topic names a broadcast channel a client can subscribe to. Only
// subscribed clients receive events published on a topic.
type Topic string

const (
	TopicFileSystem Topic = "FileSystem"
	TopicIndexer    Topic = "Indexer"
	TopicThumbnails Topic = "Thumbnails"
	TopicSearch     Topic = "Search"
	TopicJobs       Topic = "Jobs"
	TopicErrors     Topic = "Errors"
)

// ErrorCode enumerates the closed set of error kinds surfaced to clients.
type ErrorCode string

const (
	ErrNotFound         ErrorCode = "NotFound"
	ErrPermissionDenied ErrorCode = "PermissionDenied"
	ErrAlreadyExists    ErrorCode = "AlreadyExists"
	ErrIsDirectory      ErrorCode = "IsDirectory"
	ErrNotDirectory     ErrorCode = "NotDirectory"
	ErrInvalidName      ErrorCode = "InvalidName"
	ErrReadOnlyVolume   ErrorCode = "ReadOnlyVolume"
	ErrCancelled        ErrorCode = "Cancelled"
	ErrUnsupported      ErrorCode = "Unsupported"
	ErrMissingTool      ErrorCode = "MissingTool"
	ErrTimeout          ErrorCode = "Timeout"
	ErrIndexCorrupt     ErrorCode = "IndexCorrupt"
	ErrInvalidCommand   ErrorCode = "InvalidCommand"
	ErrIncompatible     ErrorCode = "Incompatible"
	ErrUnknown          ErrorCode = "Unknown"
)

// ClientCapability and ServerCapability are opaque feature flags exchanged
// during the handshake so either side can gate behavior on what the other
// understands, without bumping the protocol version for additive features.
type ClientCapability string
type ServerCapability string

const (
	ServerCapThumbnails ServerCapability = "thumbnails"
	ServerCapJobs       ServerCapability = "jobs"
	ServerCapSearch     ServerCapability = "search"
)
