package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

// FSCollector reads batch inputs from the local filesystem.
type FSCollector struct {
	SkipHidden bool
	logger     *slog.Logger
}

func NewFSCollector(skipHidden bool, logger *slog.Logger) *FSCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSCollector{SkipHidden: skipHidden, logger: logger}
}

// ReadPath loads a single file as an Input, declaring its type from the extension.
func (c *FSCollector) ReadPath(path string) (entity.Input, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return entity.Input{}, fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	return entity.Input{
		Name:     name,
		MIMEType: MIMETypeForName(name),
		Size:     int64(len(content)),
		Content:  content,
	}, nil
}

// Collect resolves paths into inputs. Files are taken as given (validation
// decides on their type later); directories are walked in lexical order and
// contribute their .pdf and .zip files.
func (c *FSCollector) Collect(paths []string) ([]entity.Input, DirStats, error) {
	if len(paths) == 0 {
		return nil, DirStats{}, errors.New("at least one path is required")
	}

	var inputs []entity.Input
	var stats DirStats

	for _, root := range paths {
		if strings.TrimSpace(root) == "" {
			continue
		}
		info, err := os.Stat(root)
		if err != nil {
			return inputs, stats, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			stats.Scanned++
			in, err := c.ReadPath(root)
			if err != nil {
				return inputs, stats, err
			}
			stats.Matched++
			inputs = append(inputs, in)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				c.logger.Warn("ingest.collect.walk_error", "path", path, "error", walkErr)
				stats.Failed++
				return nil
			}
			if path != root && c.SkipHidden && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				stats.Skipped++
				return nil
			}
			if d.IsDir() {
				return nil
			}
			stats.Scanned++
			if !AllowedExt(filepath.Ext(path)) {
				stats.Skipped++
				return nil
			}
			in, err := c.ReadPath(path)
			if err != nil {
				c.logger.Warn("ingest.collect.read_error", "path", path, "error", err)
				stats.Failed++
				return nil
			}
			stats.Matched++
			inputs = append(inputs, in)
			return nil
		})
		if err != nil {
			return inputs, stats, fmt.Errorf("walk: %w", err)
		}
	}

	c.logger.Info("ingest.collect.done",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return inputs, stats, nil
}
