package tracing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// Format is the on-disk encoding of an exported trace
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Compression wraps the encoded trace
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

var (
	ErrUnknownFormat      = errors.New("unknown trace format")
	ErrUnknownCompression = errors.New("unknown trace compression")
)

// FileExporter writes one file per export under a directory
type FileExporter struct {
	dir         string
	format      Format
	compression Compression
	logger      *zap.Logger
}

// ExporterOption configures a FileExporter
type ExporterOption func(*FileExporter)

// WithFormat selects the encoding (default json)
func WithFormat(f Format) ExporterOption {
	return func(e *FileExporter) { e.format = f }
}

// WithCompression selects the compression (default none)
func WithCompression(c Compression) ExporterOption {
	return func(e *FileExporter) { e.compression = c }
}

// WithExportLogger sets the exporter's logger
func WithExportLogger(l *zap.Logger) ExporterOption {
	return func(e *FileExporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewFileExporter creates an exporter writing under dir. The directory is
// created on first export.
func NewFileExporter(dir string, opts ...ExporterOption) (*FileExporter, error) {
	e := &FileExporter{
		dir:         dir,
		format:      FormatJSON,
		compression: CompressionNone,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	switch e.format {
	case FormatJSON, FormatYAML, FormatTOML:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, e.format)
	}
	switch e.compression {
	case CompressionNone, CompressionGzip, CompressionZstd:
	case "":
		e.compression = CompressionNone
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, e.compression)
	}
	return e, nil
}

// Dir returns the output directory
func (e *FileExporter) Dir() string {
	return e.dir
}

// Extension returns the file extension, e.g. "json" or "yaml.gz"
func (e *FileExporter) Extension() string {
	switch e.compression {
	case CompressionGzip:
		return string(e.format) + ".gz"
	case CompressionZstd:
		return string(e.format) + ".zst"
	default:
		return string(e.format)
	}
}

// Export writes root's tree and returns the file path. When filename is empty
// it is derived from the root's start time, so re-exporting the same session
// rewrites the same file.
func (e *FileExporter) Export(root *Span, filename string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create trace dir: %w", err)
	}
	if filename == "" {
		filename = TraceFilename(root.StartTime, e.Extension())
	}
	path := filepath.Join(e.dir, filename)

	data, err := Encode(root.Record(), e.format)
	if err != nil {
		return "", err
	}
	if err := e.write(path, data); err != nil {
		return "", err
	}

	e.logger.Debug("trace file written",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return path, nil
}

func (e *FileExporter) write(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close trace file: %w", cerr)
		}
	}()

	var w io.WriteCloser
	switch e.compression {
	case CompressionGzip:
		w = gzip.NewWriter(f)
	case CompressionZstd:
		zw, zerr := zstd.NewWriter(f)
		if zerr != nil {
			return fmt.Errorf("zstd writer: %w", zerr)
		}
		w = zw
	default:
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("write trace file: %w", err)
		}
		return nil
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write trace file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("flush trace file: %w", err)
	}
	return nil
}

// TraceFilename returns trace_<YYYYMMDD_HHMMSS>.<ext>
func TraceFilename(t time.Time, ext string) string {
	return fmt.Sprintf("trace_%s.%s", t.Format("20060102_150405"), ext)
}

// Encode serializes a record in the given format
func Encode(rec Record, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := sonic.ConfigStd.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return data, nil
	case FormatTOML:
		data, err := toml.Marshal(tomlRecordOf(rec))
		if err != nil {
			return nil, fmt.Errorf("encode toml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// tomlRecord mirrors Record for go-toml, which cannot call custom
// marshalers. Attribute keys come out sorted.
type tomlRecord struct {
	Kind       string         `toml:"kind"`
	ID         string         `toml:"id"`
	Name       string         `toml:"name"`
	StartTime  string         `toml:"start_time"`
	EndTime    string         `toml:"end_time,omitempty"`
	DurationMS *float64       `toml:"duration_ms,omitempty"`
	Status     string         `toml:"status"`
	Error      string         `toml:"error,omitempty"`
	Attributes map[string]any `toml:"attributes,omitempty"`
	Children   []tomlRecord   `toml:"children,omitempty"`
}

func tomlRecordOf(rec Record) tomlRecord {
	out := tomlRecord{
		Kind:       rec.Kind,
		ID:         rec.ID,
		Name:       rec.Name,
		StartTime:  rec.StartTime,
		EndTime:    rec.EndTime,
		DurationMS: rec.DurationMS,
		Status:     string(rec.Status),
		Error:      rec.Error,
	}
	if len(rec.Attributes) > 0 {
		out.Attributes = rec.Attributes.plain()
	}
	for _, child := range rec.Children {
		out.Children = append(out.Children, tomlRecordOf(child))
	}
	return out
}
