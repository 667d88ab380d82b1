package wire

// CommandType discriminates the Command union on the wire.
type CommandType string

const (
	CmdHello            CommandType = "Hello"
	CmdDisconnect       CommandType = "Disconnect"
	CmdSubscribe        CommandType = "Subscribe"
	CmdUnsubscribe      CommandType = "Unsubscribe"
	CmdDelete           CommandType = "Delete"
	CmdCopy             CommandType = "Copy"
	CmdMove             CommandType = "Move"
	CmdOpenFolder       CommandType = "OpenFolder"
	CmdSearch           CommandType = "Search"
	CmdBrowse           CommandType = "Browse"
	CmdRequestThumbnail CommandType = "RequestThumbnail"
	CmdListJobs         CommandType = "ListJobs"
	CmdCancelJob        CommandType = "CancelJob"
)

// ListJobsCommand carries no fields; the reply is always the scheduler's
// full persisted snapshot.
type ListJobsCommand struct{}

// Command is the tagged union of every message a client may send. Exactly
// one of the typed fields is populated, selected by Type.
type Command struct {
	Type CommandType `json:"type"`

	Hello            *HelloCommand            `json:"hello,omitempty"`
	Subscribe        *SubscribeCommand        `json:"subscribe,omitempty"`
	Unsubscribe      *SubscribeCommand        `json:"unsubscribe,omitempty"`
	Delete           *DeleteCommand           `json:"delete,omitempty"`
	Copy             *CopyCommand             `json:"copy,omitempty"`
	Move             *MoveCommand             `json:"move,omitempty"`
	OpenFolder       *OpenFolderCommand       `json:"open_folder,omitempty"`
	Search           *SearchCommand           `json:"search,omitempty"`
	Browse           *BrowseCommand           `json:"browse,omitempty"`
	RequestThumbnail *RequestThumbnailCommand `json:"request_thumbnail,omitempty"`
	ListJobs         *ListJobsCommand         `json:"list_jobs,omitempty"`
	CancelJob        *CancelJobCommand        `json:"cancel_job,omitempty"`
}

type HelloCommand struct {
	Protocol       uint16             `json:"protocol"`
	ClientID       string             `json:"client_id"`
	ClientVersion  string             `json:"client_version"`
	Capabilities   []ClientCapability `json:"capabilities"`
}

type SubscribeCommand struct {
	Topics []Topic `json:"topics"`
}

// ConflictPolicy mirrors internal/fsops.ConflictPolicy on the wire so the
// protocol package has no dependency on the fs-ops implementation.
type ConflictPolicy string

const (
	ConflictOverwrite ConflictPolicy = "Overwrite"
	ConflictSkip      ConflictPolicy = "Skip"
	ConflictRename    ConflictPolicy = "Rename"
	ConflictError     ConflictPolicy = "Error"
)

// Priority mirrors internal/jobs.Priority on the wire.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityNormal   Priority = "Normal"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

type DeleteCommand struct {
	Path string `json:"path"`
}

type CopyCommand struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Conflict ConflictPolicy `json:"conflict"`
	Priority Priority       `json:"priority"`
}

type MoveCommand struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Conflict ConflictPolicy `json:"conflict"`
	Priority Priority       `json:"priority"`
}

type OpenFolderCommand struct {
	Path string `json:"path"`
}

type SearchCommand struct {
	Query QueryNode `json:"query"`
	Limit int       `json:"limit"`
}

type BrowseCommand struct {
	Path string `json:"path"`
}

type RequestThumbnailCommand struct {
	Path     string   `json:"path"`
	Size     uint32   `json:"size"`
	Priority Priority `json:"priority"`
}

type CancelJobCommand struct {
	JobID string `json:"job_id"`
}

// QueryNode is the wire form of the index query tree (spec §4.4), encoded
// as a tagged union so it can nest.
type QueryNode struct {
	And          []QueryNode `json:"and,omitempty"`
	Or           []QueryNode `json:"or,omitempty"`
	Not          *QueryNode  `json:"not,omitempty"`
	Name         string      `json:"name,omitempty"`
	Tokens       []string    `json:"tokens,omitempty"`
	Ext          string      `json:"ext,omitempty"`
	InDir        string      `json:"in_dir,omitempty"`
	PathPrefix   string      `json:"path_prefix,omitempty"`
	SizeLess     *int64      `json:"size_less,omitempty"`
	SizeGreater  *int64      `json:"size_greater,omitempty"`
}
