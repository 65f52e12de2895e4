package pcapfile

import (
	"fmt"
	"os"
	"sync"

	"github.com/endorses/lcdissect/internal/pkg/logger"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// DefaultSnapLen is written to the file header.
const DefaultSnapLen = 262144

// Writer writes records to a pcap file. The file header is written with the
// first record so it carries that record's link type.
type Writer struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	writer   *pcapgo.Writer
	linkType layers.LinkType
	header   bool
	closed   bool

	packetCount  int64
	bytesWritten int64
}

// Create creates or truncates path.
func Create(path string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create PCAP file: %w", err)
	}
	logger.Debug("Created PCAP writer", "file", path)
	return &Writer{filePath: path, file: file, writer: pcapgo.NewWriter(file)}, nil
}

// Write appends one record. All records must share the first one's link
// type.
func (w *Writer) Write(lt layers.LinkType, ci gopacket.CaptureInfo, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if !w.header {
		if err := w.writer.WriteFileHeader(DefaultSnapLen, lt); err != nil {
			return fmt.Errorf("failed to write PCAP header: %w", err)
		}
		w.header = true
		w.linkType = lt
	} else if lt != w.linkType {
		return fmt.Errorf("link type %s does not match file link type %s", lt, w.linkType)
	}

	if err := w.writer.WritePacket(ci, data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	w.packetCount++
	w.bytesWritten += int64(len(data))
	return nil
}

// Close closes the file. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close PCAP file: %w", err)
	}
	logger.Debug("Closed PCAP writer",
		"file", w.filePath,
		"packets", w.packetCount,
		"bytes", w.bytesWritten)
	return nil
}

// Stats returns the number of records and bytes written.
func (w *Writer) Stats() (packetCount, bytesWritten int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.packetCount, w.bytesWritten
}

// FilePath returns the path being written.
func (w *Writer) FilePath() string {
	return w.filePath
}
