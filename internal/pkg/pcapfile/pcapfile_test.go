package pcapfile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureInfo(ts time.Time, data []byte, wire int) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(data), Length: wire}
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pcap")
	w, err := Create(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.FilePath())

	ts := time.Unix(1700000000, 123456000).UTC()
	first := []byte{1, 2, 3, 4}
	second := []byte{5, 6}
	require.NoError(t, w.Write(layers.LinkTypeEthernet, captureInfo(ts, first, 4), first))
	require.NoError(t, w.Write(layers.LinkTypeEthernet, captureInfo(ts.Add(time.Second), second, 60), second))
	assert.Error(t, w.Write(layers.LinkTypeRaw, captureInfo(ts, first, 4), first))

	packets, written := w.Stats()
	assert.Equal(t, int64(2), packets)
	assert.Equal(t, int64(6), written)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Error(t, w.Write(layers.LinkTypeEthernet, captureInfo(ts, first, 4), first))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, FormatPcap, r.Format())
	assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, first, rec.Data)
	assert.True(t, ts.Equal(rec.Info.Timestamp))

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, second, rec.Data)
	assert.Equal(t, 60, rec.Info.Length)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderPcapNG(t *testing.T) {
	var buf bytes.Buffer
	ng, err := pcapgo.NewNgWriter(&buf, layers.LinkTypeEthernet)
	require.NoError(t, err)
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	require.NoError(t, ng.WritePacket(captureInfo(time.Unix(1700000000, 0), data, 4), data))
	require.NoError(t, ng.Flush())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, FormatPcapNG, r.Format())
	assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, data, rec.Data)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, r.Close())
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short header", data: []byte{0xd4, 0xc3}},
		{name: "bad magic", data: bytes.Repeat([]byte{0x42}, 24)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(bytes.NewReader(tt.data))
			assert.Error(t, err)
		})
	}

	_, err := Open(filepath.Join(t.TempDir(), "missing.pcap"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCreateEmptyPath(t *testing.T) {
	_, err := Create("")
	assert.Error(t, err)
}
