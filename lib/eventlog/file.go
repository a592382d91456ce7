package eventlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends event lines to a text file.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

func OpenFile(path string) (*FileSink, error) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.file.WriteString(event.Line() + "\n")
	return err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
