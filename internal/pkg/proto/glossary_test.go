package proto

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpGlossary(t *testing.T) {
	r := newTestRegistry(t)

	var buf bytes.Buffer
	require.NoError(t, r.DumpGlossary(&buf))

	want := strings.Join([]string{
		"P\tFrame\tframe\tFT_PROTOCOL\t",
		"F\tFrame length\tframe.len\tFT_UINT32\tframe",
		"P\tUser Datagram Protocol\tudp\tFT_PROTOCOL\t",
		"F\tSource Port\tudp.srcport\tFT_UINT16\tudp",
		"F\tDestination Port\tudp.dstport\tFT_UINT16\tudp",
		"F\tSource or Destination Port\tudp.port\tFT_UINT16\tudp",
		"F\tLength\tudp.length\tFT_UINT16\tudp",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestDumpGlossaryFiveColumns(t *testing.T) {
	r := NewRegistry()
	p := r.Register(HeaderField{Name: "TEST", Abbrev: "test", Type: ftypes.FTNone}, NoParent)
	r.Register(HeaderField{Name: "test.flag", Abbrev: "test.flag", Type: ftypes.FTBoolean, Bitmask: 0x01}, p)

	var buf bytes.Buffer
	require.NoError(t, r.DumpGlossary(&buf))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Len(t, strings.Split(line, "\t"), 5)
	}
	assert.Equal(t, "P\tTEST\ttest\tFT_NONE\t", lines[0])
	assert.Equal(t, "F\ttest.flag\ttest.flag\tFT_BOOLEAN\ttest", lines[1])
}

func TestDumpGlossaryFiltered(t *testing.T) {
	r := newTestRegistry(t)

	var buf bytes.Buffer
	err := r.DumpGlossaryFiltered(&buf, func(hf *HeaderField) bool {
		return strings.HasSuffix(hf.Abbrev, "port")
	})
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
}

func TestDumpProtocols(t *testing.T) {
	r := newTestRegistry(t)

	var buf bytes.Buffer
	require.NoError(t, r.DumpProtocols(&buf))
	assert.Equal(t, "Frame\tFrame\tframe\nUser Datagram Protocol\tUDP\tudp\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestDumpGlossaryWriteError(t *testing.T) {
	r := newTestRegistry(t)
	assert.Error(t, r.DumpGlossary(failingWriter{}))
}
