// Package report persists finished itineraries as JSON and Markdown
// artifacts on disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/logging"
)

// Writer renders itineraries into an output directory, one JSON document
// and one Markdown report per itinerary, named by itinerary id.
type Writer struct {
	dir    string
	logger logging.Logger
}

// WriterOptions configure a Writer.
type WriterOptions struct {
	Logger logging.Logger
}

// NewWriter constructs a Writer targeting dir, creating it if needed.
func NewWriter(dir string, optFns ...func(o *WriterOptions)) (*Writer, error) {
	opts := WriterOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory %s: %w", dir, err)
	}
	return &Writer{dir: dir, logger: opts.Logger}, nil
}

// Write persists the itinerary and returns the paths of the JSON and
// Markdown artifacts.
func (w *Writer) Write(it *core.Itinerary) (jsonPath, markdownPath string, err error) {
	data, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal itinerary %s: %w", it.ItineraryID, err)
	}

	jsonPath = filepath.Join(w.dir, it.ItineraryID+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", jsonPath, err)
	}

	markdownPath = filepath.Join(w.dir, it.ItineraryID+".md")
	if err := os.WriteFile(markdownPath, []byte(it.Markdown()), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", markdownPath, err)
	}

	w.logger.Info("Itinerary report written",
		"itinerary_id", it.ItineraryID, "json", jsonPath, "markdown", markdownPath)
	return jsonPath, markdownPath, nil
}
