// Package logging provides session log storage for ovpn connections.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Store handles log file path construction and directory management.
// Logs are grouped per remote, one file per connection session.
type Store struct {
	baseDir string
}

// NewStore creates a new Store with the given base directory.
// The base directory is typically ~/.local/share/openvpn-adapter/logs.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// BaseDir returns the base log directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// RemoteDir returns the log directory for a specific remote.
// Path format: <baseDir>/<remote>/
func (s *Store) RemoteDir(remote string) string {
	return filepath.Join(s.baseDir, remote)
}

// SessionPath returns the full path for a session's log file.
// Path format: <baseDir>/<remote>/<session>.log
func (s *Store) SessionPath(remote, session string) string {
	return filepath.Join(s.baseDir, remote, session+".log")
}

// NewSessionID returns a session identifier derived from the current time.
func NewSessionID() string {
	return time.Now().Format("20060102-150405")
}

// EnsureSession ensures the remote's log directory exists and returns the
// full log file path for the session.
func (s *Store) EnsureSession(remote, session string) (string, error) {
	if err := os.MkdirAll(s.RemoteDir(remote), 0o750); err != nil {
		return "", fmt.Errorf("create remote log directory: %w", err)
	}
	return s.SessionPath(remote, session), nil
}

// SessionExists checks if a log file exists for the given session.
func (s *Store) SessionExists(remote, session string) bool {
	_, err := os.Stat(s.SessionPath(remote, session))
	return err == nil
}

// RemoveSession removes a session's log file if it exists.
func (s *Store) RemoveSession(remote, session string) error {
	if err := os.Remove(s.SessionPath(remote, session)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session log: %w", err)
	}
	return nil
}

// RemoveRemote removes all log files for a remote.
func (s *Store) RemoveRemote(remote string) error {
	if err := os.RemoveAll(s.RemoteDir(remote)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove remote logs: %w", err)
	}
	return nil
}

// Sessions returns the session IDs that have log files for the given remote,
// sorted oldest first. Session IDs are timestamps, so lexical order is
// chronological order.
func (s *Store) Sessions(remote string) ([]string, error) {
	entries, err := os.ReadDir(s.RemoteDir(remote))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read remote log directory: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ext := filepath.Ext(name); ext == ".log" {
			sessions = append(sessions, name[:len(name)-len(ext)])
		}
	}
	sort.Strings(sessions)
	return sessions, nil
}

// LatestSession returns the most recent session ID for a remote, or an
// empty string when the remote has no logs.
func (s *Store) LatestSession(remote string) (string, error) {
	sessions, err := s.Sessions(remote)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", nil
	}
	return sessions[len(sessions)-1], nil
}
