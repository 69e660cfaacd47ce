package mealsuggest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// GenerationLogger is the interface for per-request pipeline logging.
type GenerationLogger interface {
	LogPhase(entry PhaseLog) error
}

// NewGenerationLogFilePath returns a file path based on a cleaned up model name or id to make it easier to identify specific logs produced with various models.
func NewGenerationLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(model), ":", "_"),
	)
}

// PhaseLog represents a single phase attempt in the generation pipeline.
type PhaseLog struct {
	Phase          string    `json:"phase"`
	Pool           string    `json:"pool,omitempty"`
	Attempt        int       `json:"attempt"`
	Timestamp      time.Time `json:"timestamp"`
	DurationMS     int64     `json:"duration_ms"`
	CandidateCount int       `json:"candidate_count,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// FileGenerationLogger logs to a file, accumulating phase entries and flushing at the end.
type FileGenerationLogger struct {
	entries []PhaseLog
	writer  io.Writer
}

// NewFileGenerationLogger creates a new file-based generation logger.
func NewFileGenerationLogger(writer io.Writer) *FileGenerationLogger {
	return &FileGenerationLogger{
		entries: make([]PhaseLog, 0),
		writer:  writer,
	}
}

// LogPhase logs a phase attempt to the buffer (does not flush immediately).
func (fgl *FileGenerationLogger) LogPhase(entry PhaseLog) error {
	fgl.entries = append(fgl.entries, entry)
	return nil
}

// Flush flushes all accumulated entries to the writer.
func (fgl *FileGenerationLogger) Flush() error {
	if fgl.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"generation_run": map[string]any{
			"timestamp": time.Now(),
			"phases":    fgl.entries,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal generation log: %w", err)
	}

	if _, err := fgl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write generation log: %w", err)
	}

	// Clear the buffer after successful write
	fgl.entries = fgl.entries[:0]
	return nil
}

// NoOpGenerationLogger is a logger that discards all log entries.
type NoOpGenerationLogger struct{}

// NewNoOpGenerationLogger creates a new no-op generation logger.
func NewNoOpGenerationLogger() *NoOpGenerationLogger {
	return &NoOpGenerationLogger{}
}

// LogPhase discards the phase entry (no-op).
func (nop *NoOpGenerationLogger) LogPhase(entry PhaseLog) error {
	return nil
}

// StdoutGenerationLogger logs each phase attempt as a JSON line to stdout.
type StdoutGenerationLogger struct{}

// NewStdoutGenerationLogger creates a new stdout-based generation logger.
func NewStdoutGenerationLogger() *StdoutGenerationLogger {
	return &StdoutGenerationLogger{}
}

// LogPhase writes the phase attempt as a JSON line to os.Stdout.
func (l *StdoutGenerationLogger) LogPhase(entry PhaseLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
