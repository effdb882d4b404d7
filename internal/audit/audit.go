package audit

import (
	"encoding/json"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/PolarWolf314/dotvault/internal/utils"
)

// TimestampFormat is RFC3339 with microseconds, always UTC.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`
	RunID     string `json:"run"`
	User      string `json:"user,omitempty"`
	Machine   string `json:"machine,omitempty"`
	Operation string `json:"op"`

	// Optional fields depending on operation.
	Backend   string   `json:"backend,omitempty"`
	Location  string   `json:"location,omitempty"`
	Items     []string `json:"items,omitempty"`
	Pushed    int      `json:"pushed,omitempty"`
	Pulled    int      `json:"pulled,omitempty"`
	Conflicts int      `json:"conflicts,omitempty"`
	Errors    int      `json:"errors,omitempty"`
	Skipped   int      `json:"skipped,omitempty"`
	DryRun    bool     `json:"dry_run,omitempty"`
	Target    string   `json:"target,omitempty"` // For delete.
	Error     string   `json:"error,omitempty"`
}

// Trail appends entries to one audit file. All entries written through the
// same Trail share a run id.
type Trail struct {
	fs      afero.Fs
	path    string
	runID   string
	user    string
	machine string
	now     func() time.Time
}

// New returns a Trail writing to path on fs.
func New(fs afero.Fs, path string) *Trail {
	user, _ := utils.GetUsername()
	return &Trail{
		fs:      fs,
		path:    path,
		runID:   uuid.NewString(),
		user:    user,
		machine: utils.MachineName(),
		now:     time.Now,
	}
}

// RunID identifies the process invocation that owns this trail.
func (t *Trail) RunID() string {
	if t == nil {
		return ""
	}
	return t.runID
}

// Path returns the audit log location, or "" for a nil trail.
func (t *Trail) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Entry returns an entry for op with the run, user and machine fields filled in.
func (t *Trail) Entry(op string) Entry {
	entry := Entry{Operation: op}
	if t != nil {
		entry.RunID = t.runID
		entry.User = t.user
		entry.Machine = t.machine
	}
	return entry
}

// Log appends an entry to the audit log.
// If logging fails it is silently dropped: an operation never fails just
// because audit logging failed. A nil Trail discards everything.
func (t *Trail) Log(entry Entry) {
	if t == nil || t.path == "" {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = t.now().UTC().Format(TimestampFormat)
	}
	if entry.RunID == "" {
		entry.RunID = t.runID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	if err := t.fs.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return
	}
	f, err := t.fs.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func (t *Trail) ReadEntries() ([]Entry, error) {
	if t == nil || t.path == "" {
		return nil, nil
	}

	data, err := afero.ReadFile(t.fs, t.path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Partial write from an interrupted run.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
