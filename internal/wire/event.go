package wire

// EventType discriminates the Event union on the wire.
type EventType string

const (
	EvtWelcome       EventType = "Welcome"
	EvtIncompatible  EventType = "Incompatible"
	EvtError         EventType = "Error"
	EvtJobUpdate     EventType = "JobUpdate"
	EvtJobProgress   EventType = "JobProgress"
	EvtJobFailed     EventType = "JobFailed"
	EvtJobList       EventType = "JobList"
	EvtThumbStarted  EventType = "ThumbStarted"
	EvtThumbReady    EventType = "ThumbReady"
	EvtThumbFailed   EventType = "ThumbFailed"
	EvtSearchResults EventType = "SearchResults"
	EvtBrowseResults EventType = "BrowseResults"
	EvtFileCreated   EventType = "FileCreated"
	EvtFileModified  EventType = "FileModified"
	EvtFileDeleted   EventType = "FileDeleted"
)

// Event is the tagged union of every message the server may emit. Exactly
// one of the typed fields is populated, selected by Type.
type Event struct {
	Type EventType `json:"type"`

	Welcome       *WelcomeEvent       `json:"welcome,omitempty"`
	Incompatible  *IncompatibleEvent  `json:"incompatible,omitempty"`
	Error         *ErrorEvent         `json:"error,omitempty"`
	JobUpdate     *JobUpdateEvent     `json:"job_update,omitempty"`
	JobProgress   *JobProgressEvent   `json:"job_progress,omitempty"`
	JobFailed     *JobFailedEvent     `json:"job_failed,omitempty"`
	JobList       *JobListEvent       `json:"job_list,omitempty"`
	ThumbStarted  *ThumbStartedEvent  `json:"thumb_started,omitempty"`
	ThumbReady    *ThumbReadyEvent    `json:"thumb_ready,omitempty"`
	ThumbFailed   *ThumbFailedEvent   `json:"thumb_failed,omitempty"`
	SearchResults *SearchResultsEvent `json:"search_results,omitempty"`
	BrowseResults *BrowseResultsEvent `json:"browse_results,omitempty"`
	FileChange    *FileChangeEvent    `json:"file_change,omitempty"`
}

type WelcomeEvent struct {
	SessionID          string             `json:"session_id"`
	ServerVersion      string             `json:"server_version"`
	ServerCapabilities []ServerCapability `json:"server_capabilities"`
}

type IncompatibleEvent struct {
	Reason             string `json:"reason"`
	SupportedProtocol  uint16 `json:"supported_protocol"`
}

type ErrorEvent struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type JobUpdateEvent struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Done   uint64 `json:"done"`
	Total  uint64 `json:"total"`
}

type JobProgressEvent struct {
	JobID string `json:"job_id"`
	Done  uint64 `json:"done"`
	Total uint64 `json:"total"`
}

type JobFailedEvent struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

type JobSummary struct {
	JobID     string `json:"job_id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	Attempts  uint8  `json:"attempts"`
	Done      uint64 `json:"done"`
	Total     uint64 `json:"total"`
}

type JobListEvent struct {
	Jobs []JobSummary `json:"jobs"`
}

type ThumbStartedEvent struct {
	Path string `json:"path"`
	Size uint32 `json:"size"`
}

type ThumbReadyEvent struct {
	Path      string `json:"path"`
	Size      uint32 `json:"size"`
	ThumbPath string `json:"thumb_path"`
}

type ThumbFailedEvent struct {
	Path   string `json:"path"`
	Size   uint32 `json:"size"`
	Reason string `json:"reason"`
}

type FileRecordView struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Ext          string `json:"ext"`
	IsDir        bool   `json:"is_dir"`
	IsSymlink    bool   `json:"is_symlink"`
	Size         int64  `json:"size"`
	ModifiedUnix int64  `json:"modified_unix"`
}

type SearchResultsEvent struct {
	Results []FileRecordView `json:"results"`
}

type BrowseResultsEvent struct {
	Path    string           `json:"path"`
	Entries []FileRecordView `json:"entries"`
}

type FileChangeKind string

const (
	FileChangeCreated  FileChangeKind = "Created"
	FileChangeModified FileChangeKind = "Modified"
	FileChangeDeleted  FileChangeKind = "Deleted"
)

type FileChangeEvent struct {
	Kind FileChangeKind `json:"kind"`
	Path string         `json:"path"`
}
