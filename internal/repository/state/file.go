package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

// Repository defines persistence operations for the security system state.
type Repository interface {
	Load(ctx context.Context) (*security.State, error)
	Save(ctx context.Context, state *security.State) error
	Close() error
}

// Storage drivers accepted by Open.
const (
	DriverFile = "file"
	DriverBolt = "bolt"
)

// DefaultFilePermissions is the permission of created state files.
const DefaultFilePermissions = 0o600

var (
	// ErrNotFound is returned when no state has been saved yet.
	ErrNotFound = errors.New("state not found")
	// ErrUnknownDriver is returned by Open for unsupported drivers.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Open creates the repository for driver at path.
func Open(driver, path string) (Repository, error) {
	switch driver {
	case DriverFile, "":
		return NewFileRepository(path), nil
	case DriverBolt:
		return NewBoltRepository(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// FileRepository persists the state to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the state from disk.
func (r *FileRepository) Load(_ context.Context) (*security.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	return decode(contents)
}

// Save writes the state to disk. The file is replaced atomically so a crash
// never leaves a truncated document behind.
func (r *FileRepository) Save(_ context.Context, state *security.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := encode(state)
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

// Close implements Repository.
func (r *FileRepository) Close() error {
	return nil
}
