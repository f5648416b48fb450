package reference

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFASTA = `>demo CAG repeat example
TCTCAGC
AGCATCT
>chr12 partial
ACGTACGT

>MT
GATCACAGGT
`

func TestFASTALoader_ParseHeader(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		{">chr12", "chr12"},
		{">chr12 Homo sapiens chromosome 12", "chr12"},
		{">12\tdna:chromosome", "12"},
		{">", ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseHeader(tt.header))
		})
	}
}

func TestFASTALoader_ParseFASTA(t *testing.T) {
	loader := NewFASTALoader("")
	require.NoError(t, loader.LoadFrom(strings.NewReader(testFASTA)))

	assert.Equal(t, 3, loader.SequenceCount())
	assert.Equal(t, []string{"demo", "chr12", "MT"}, loader.Names())

	seq, ok := loader.Sequence("demo")
	require.True(t, ok)
	assert.Equal(t, "TCTCAGCAGCATCT", string(seq))

	seq, ok = loader.Sequence("chr12")
	require.True(t, ok)
	assert.Equal(t, "ACGTACGT", string(seq))
}

func TestFASTALoader_SequenceAliases(t *testing.T) {
	loader := NewFASTALoader("")
	require.NoError(t, loader.LoadFrom(strings.NewReader(testFASTA)))

	tests := []struct {
		name  string
		found bool
	}{
		{"12", true},
		{"chr12", true},
		{"chrM", true},
		{"M", true},
		{"MT", true},
		{"chrdemo", true},
		{"13", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := loader.Sequence(tt.name)
			assert.Equal(t, tt.found, ok)
		})
	}
}

func TestFASTALoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"duplicate", ">a\nAC\n>a\nGT\n", "duplicate FASTA sequence"},
		{"data before header", "ACGT\n>a\nAC\n", "before first FASTA header"},
		{"empty header", ">\nACGT\n", "empty FASTA header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFASTALoader("").LoadFrom(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestFASTALoader_EmptySequence(t *testing.T) {
	loader := NewFASTALoader("")
	require.NoError(t, loader.LoadFrom(strings.NewReader(">empty\n>b\nAC\n")))

	seq, ok := loader.Sequence("empty")
	require.True(t, ok)
	assert.Empty(t, seq)
}

func TestFASTALoader_LoadGzipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.fa.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(testFASTA))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	loader := NewFASTALoader(path)
	require.NoError(t, loader.Load())
	assert.Equal(t, 3, loader.SequenceCount())
	assert.Equal(t, path, loader.Path())
}

func TestFASTALoader_LoadMissing(t *testing.T) {
	err := NewFASTALoader(filepath.Join(t.TempDir(), "missing.fa")).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open FASTA file")
}
