package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput writes each dumped exchange to <directory>/<prefix>-<id>.
type FilesystemOutput struct {
	directory string
	prefix    string
}

// NewFilesystemOutput creates `dir` if needed. Files from earlier runs with
// the same prefix are overwritten as ids repeat.
func NewFilesystemOutput(dir, prefix string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir, prefix: prefix}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	name := id
	if o.prefix != "" {
		name = o.prefix + "-" + id
	}
	err := os.WriteFile(filepath.Join(o.directory, name), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message dump", "id", id, "err", err)
	}
}
