package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/example/braid/internal/models"
)

const (
	// LogFileName is the logical name of the journal inside a data dir.
	LogFileName = "journal.jsonl"
	// LockFileName guards the single-writer invariant per data dir.
	LockFileName = "journal.lock"

	// maxLineBytes bounds a single record line during replay. Run output
	// is capped at 8 KiB, so 1 MiB leaves generous headroom.
	maxLineBytes = 1 << 20
)

// Journal is the single writer for one data directory. Opening a Journal
// takes an advisory flock; a second writer gets a ConflictError.
type Journal struct {
	mu   sync.Mutex
	dir  string
	file *os.File
	lock *os.File
	head int64 // version of the last durable record
	size int64 // byte offset just past the last complete record
}

// Open acquires the directory lock, scans the existing log to find the
// head version, and truncates any torn trailing line left by a crash.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &models.IOError{Op: "create data dir", Err: err}
	}

	lock, err := os.OpenFile(filepath.Join(dir, LockFileName), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, &models.IOError{Op: "open lock file", Err: err}
	}
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lock.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, &models.ConflictError{Op: "open journal", Detail: "another writer holds the lock for " + dir}
		}
		return nil, &models.IOError{Op: "lock journal", Err: err}
	}

	file, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		releaseLock(lock)
		return nil, &models.IOError{Op: "open journal", Err: err}
	}

	j := &Journal{dir: dir, file: file, lock: lock}
	if err := j.recover(); err != nil {
		file.Close()
		releaseLock(lock)
		return nil, err
	}
	return j, nil
}

// recover scans the log, records the head version and the offset of the
// last complete record, and truncates anything after it. A torn final
// line is the only damage an append crash can leave.
func (j *Journal) recover() error {
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return &models.IOError{Op: "seek journal", Err: err}
	}

	var (
		reader = bufio.NewReaderSize(j.file, 64*1024)
		offset int64
	)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			// No trailing newline: torn write, drop it.
			break
		}
		if err != nil {
			return &models.IOError{Op: "scan journal", Err: err}
		}
		var rec Record
		if jsonErr := json.Unmarshal(line, &rec); jsonErr != nil {
			// A complete but unparsable line means real corruption,
			// not a torn append. Refuse to guess.
			return &models.IOError{Op: "scan journal", Err: fmt.Errorf("corrupt record after version %d: %w", j.head, jsonErr)}
		}
		offset += int64(len(line))
		if rec.Version > j.head {
			j.head = rec.Version
		}
	}

	info, err := j.file.Stat()
	if err != nil {
		return &models.IOError{Op: "stat journal", Err: err}
	}
	if info.Size() > offset {
		if err := j.file.Truncate(offset); err != nil {
			return &models.IOError{Op: "truncate torn record", Err: err}
		}
	}
	j.size = offset
	return nil
}

// Append durably writes one record and assigns it the next version.
// On any failure the file is truncated back to its prior length and no
// version is consumed.
func (j *Journal) Append(rec *Record) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec.Version = j.head + 1
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}

	line, err := json.Marshal(rec)
	if err != nil {
		rec.Version = 0
		return 0, &models.IOError{Op: "encode record", Err: err}
	}
	line = append(line, '\n')

	if _, err := j.file.Seek(j.size, io.SeekStart); err != nil {
		rec.Version = 0
		return 0, &models.IOError{Op: "seek journal", Err: err}
	}
	if _, err := j.file.Write(line); err != nil {
		j.file.Truncate(j.size)
		rec.Version = 0
		return 0, &models.IOError{Op: "append record", Err: err}
	}
	if err := j.file.Sync(); err != nil {
		j.file.Truncate(j.size)
		rec.Version = 0
		return 0, &models.IOError{Op: "sync journal", Err: err}
	}

	j.head = rec.Version
	j.size += int64(len(line))
	return rec.Version, nil
}

// Head returns the version of the last durable record, 0 for an empty log.
func (j *Journal) Head() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.head
}

// Size returns the byte offset just past the last complete record.
func (j *Journal) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// Dir returns the journal's data directory.
func (j *Journal) Dir() string {
	return j.dir
}

// Path returns the on-disk path of the log file.
func (j *Journal) Path() string {
	return filepath.Join(j.dir, LogFileName)
}

// Replay reads every complete record from the start of the log in order.
// A torn trailing line is skipped. Callers that rebuild an index must
// treat records idempotently by version so a duplicated trailing segment
// (crash-recovery replay) is not double-counted.
func (j *Journal) Replay(apply func(*Record) error) error {
	return ReplayFile(j.Path(), apply)
}

// ReplayFile replays a journal file without taking the writer lock.
// Used by read-only consumers such as index rebuilds and migration.
func ReplayFile(path string, apply func(*Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &models.IOError{Op: "open journal", Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			// Torn or foreign trailing data; everything before it
			// already applied.
			return nil
		}
		if err := apply(&rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &models.IOError{Op: "scan journal", Err: err}
	}
	return nil
}

// ReadFrom returns all complete records whose byte offset is at or past
// from, along with the offset just past the last one returned. It lets a
// tail follower pick up appends made by another process.
func ReadFrom(path string, from int64) ([]*Record, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, from, nil
		}
		return nil, from, &models.IOError{Op: "open journal", Err: err}
	}
	defer f.Close()

	if _, err := f.Seek(from, io.SeekStart); err != nil {
		return nil, from, &models.IOError{Op: "seek journal", Err: err}
	}

	var (
		reader = bufio.NewReaderSize(f, 64*1024)
		recs   []*Record
		offset = from
	)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return recs, offset, nil
		}
		if err != nil {
			return recs, offset, &models.IOError{Op: "read journal", Err: err}
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return recs, offset, nil
		}
		recs = append(recs, &rec)
		offset += int64(len(line))
	}
}

// Close releases the writer lock and closes the log file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var first error
	if err := j.file.Close(); err != nil {
		first = err
	}
	if err := releaseLock(j.lock); err != nil && first == nil {
		first = err
	}
	if first != nil {
		return &models.IOError{Op: "close journal", Err: first}
	}
	return nil
}

func releaseLock(lock *os.File) error {
	unlockErr := unix.Flock(int(lock.Fd()), unix.LOCK_UN)
	closeErr := lock.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
