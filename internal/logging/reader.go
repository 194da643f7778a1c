package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultTailLines is the default number of lines to read when tailing.
const DefaultTailLines = 100

// Reader provides functionality to read session log files.
type Reader struct {
	store *Store
}

// NewReader creates a new Reader backed by the given Store.
func NewReader(store *Store) *Reader {
	return &Reader{store: store}
}

// ReadAll reads the entire log file for a session.
func (r *Reader) ReadAll(remote, session string) ([]string, error) {
	return readAllLines(r.store.SessionPath(remote, session))
}

// ReadLastN reads the last n lines from a session's log file.
// If n <= 0, uses DefaultTailLines.
func (r *Reader) ReadLastN(remote, session string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultTailLines
	}
	return readLastNLines(r.store.SessionPath(remote, session), n)
}

// Follow streams new log lines to the provided writer as they are appended.
// This is similar to `tail -f`. It blocks until the context is cancelled.
// The pollInterval determines how frequently to check for new content.
func (r *Reader) Follow(ctx context.Context, remote, session string, out io.Writer, pollInterval time.Duration) error {
	file, err := os.Open(r.store.SessionPath(remote, session))
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	reader := bufio.NewReader(file)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				line, err := reader.ReadBytes('\n')
				// Always write any data we received, even with EOF
				if len(line) > 0 {
					if _, werr := out.Write(line); werr != nil {
						return fmt.Errorf("write output: %w", werr)
					}
				}
				if err != nil {
					if err == io.EOF {
						break
					}
					return fmt.Errorf("read line: %w", err)
				}
			}
		}
	}
}

// FollowWithHistory reads the last n lines and then follows new output.
// This is similar to `tail -n N -f`.
func (r *Reader) FollowWithHistory(ctx context.Context, remote, session string, out io.Writer, n int, pollInterval time.Duration) error {
	lines, err := r.ReadLastN(remote, session, n)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("write history: %w", err)
		}
	}

	return r.Follow(ctx, remote, session, out, pollInterval)
}

func readAllLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file: %w", err)
	}

	return lines, nil
}

// readLastNLines reads the last n lines from a file.
// Uses a ring buffer approach for efficiency with large files.
func readLastNLines(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	ring := make([]string, n)
	idx := 0
	count := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % n
		count++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file: %w", err)
	}

	if count == 0 {
		return nil, nil
	}

	if count < n {
		return ring[:count], nil
	}

	result := make([]string, n)
	for i := 0; i < n; i++ {
		result[i] = ring[(idx+i)%n]
	}
	return result, nil
}
