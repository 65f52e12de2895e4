// Package pcapfile reads and writes capture files in the pcap and pcapng
// formats.
package pcapfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Capture file formats.
const (
	FormatPcap   = "pcap"
	FormatPcapNG = "pcapng"
)

var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Record is one captured frame as stored in the file.
type Record struct {
	Data []byte
	Info gopacket.CaptureInfo
}

type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Reader reads records sequentially. It is not safe for concurrent use.
type Reader struct {
	closer io.Closer
	src    packetSource
	format string
	read   int
}

// Open opens a capture file, detecting pcapng by its section header magic.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader reads a capture from r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(ngMagic))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty or truncated capture header: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}

	if bytes.Equal(magic, ngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("invalid pcapng header: %w", err)
		}
		return &Reader{src: ng, format: FormatPcapNG}, nil
	}

	pr, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("invalid pcap header: %w", err)
	}
	return &Reader{src: pr, format: FormatPcap}, nil
}

// Next returns the next record, or io.EOF after the last one. The returned
// data is owned by the caller.
func (r *Reader) Next() (Record, error) {
	data, ci, err := r.src.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, fmt.Errorf("record %d: %w", r.read+1, err)
		}
		return Record{}, err
	}
	r.read++
	return Record{Data: data, Info: ci}, nil
}

// LinkType returns the link type of the capture, or of its first interface
// for pcapng.
func (r *Reader) LinkType() layers.LinkType {
	return r.src.LinkType()
}

// Format returns FormatPcap or FormatPcapNG.
func (r *Reader) Format() string {
	return r.format
}

// Close closes the underlying file, if Open created it.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
