// Package reference loads reference genome sequences from FASTA files.
package reference

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/vibe-norm/internal/vcf"
)

// FASTALoader loads named reference sequences from a FASTA file.
// Sequences are kept as read; no case folding is applied.
type FASTALoader struct {
	path      string
	sequences map[string][]byte // sequence name -> residues
	names     []string          // names in file order
}

// NewFASTALoader creates a new FASTA loader.
func NewFASTALoader(path string) *FASTALoader {
	return &FASTALoader{
		path:      path,
		sequences: make(map[string][]byte),
	}
}

// Load parses the FASTA file and stores sequences indexed by name.
func (l *FASTALoader) Load() error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f

	if strings.HasSuffix(l.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return l.LoadFrom(reader)
}

// LoadFrom parses FASTA content from r.
func (l *FASTALoader) LoadFrom(r io.Reader) error {
	return l.parseFASTA(r)
}

// parseFASTA parses FASTA content. Headers look like
// ">chr7 some description"; the name ends at the first whitespace.
func (l *FASTALoader) parseFASTA(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024) // 10MB max line

	var currentName string
	var currentSeq bytes.Buffer
	inRecord := false

	save := func() error {
		if !inRecord {
			return nil
		}
		if _, dup := l.sequences[currentName]; dup {
			return fmt.Errorf("duplicate FASTA sequence %q", currentName)
		}
		seq := make([]byte, currentSeq.Len())
		copy(seq, currentSeq.Bytes())
		l.sequences[currentName] = seq
		l.names = append(l.names, currentName)
		return nil
	}

	for scanner.Scan() {
		line := scanner.Bytes()

		if len(line) > 0 && line[0] == '>' {
			if err := save(); err != nil {
				return err
			}
			currentName = parseHeader(string(line))
			if currentName == "" {
				return fmt.Errorf("empty FASTA header")
			}
			currentSeq.Reset()
			inRecord = true
			continue
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !inRecord {
			return fmt.Errorf("sequence data before first FASTA header")
		}
		currentSeq.Write(line)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan FASTA: %w", err)
	}

	return save()
}

// parseHeader extracts the sequence name from a FASTA header line.
func parseHeader(header string) string {
	header = strings.TrimPrefix(header, ">")
	if fields := strings.Fields(header); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// Sequence returns the residues of the named sequence.
// Names are matched exactly first, then with the "chr" prefix added or
// removed, so VCF "12" finds FASTA "chr12" and vice versa. "MT" and "chrM"
// are treated as the same sequence.
// The returned slice is shared and must not be modified.
func (l *FASTALoader) Sequence(name string) ([]byte, bool) {
	for _, candidate := range aliases(name) {
		if seq, ok := l.sequences[candidate]; ok {
			return seq, true
		}
	}
	return nil, false
}

func aliases(name string) []string {
	bare := vcf.NormalizeChrom(name)
	names := []string{name, bare, "chr" + bare}
	switch bare {
	case "M":
		names = append(names, "MT", "chrMT")
	case "MT":
		names = append(names, "M", "chrM")
	}
	return names
}

// SequenceCount returns the number of loaded sequences.
func (l *FASTALoader) SequenceCount() int {
	return len(l.sequences)
}

// Names returns the sequence names in file order.
func (l *FASTALoader) Names() []string {
	return l.names
}

// Path returns the FASTA file path.
func (l *FASTALoader) Path() string {
	return l.path
}
