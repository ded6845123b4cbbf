// Package io reads query sequences and writes feature records.
package io

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
)

// Record is a sequence read from a FASTA file
type Record struct {
	// Sequence is the residue string, as written in the file
	Sequence string

	// Description is the full header line without '>'
	Description string
}

// ReadFASTA reads every record of a FASTA file.
func ReadFASTA(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fasta file %s: %w", path, err)
	}
	defer f.Close()

	return readFASTA(f, path)
}

func readFASTA(r io.Reader, path string) ([]Record, error) {
	reader := fasta.NewReader(r, linear.NewSeq("", nil, alphabet.Protein))

	var records []Record
	for {
		s, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perrors.MalformedInput("read fasta", "failed to parse %s: %v", path, err)
		}

		ls, ok := s.(*linear.Seq)
		if !ok {
			return nil, perrors.MalformedInput("read fasta", "unexpected sequence type %T in %s", s, path)
		}

		description := ls.ID
		if ls.Desc != "" {
			description += " " + ls.Desc
		}
		records = append(records, Record{
			Sequence:    string(alphabet.LettersToBytes(ls.Seq)),
			Description: description,
		})
	}
	return records, nil
}

// ReadOne reads a FASTA file that must hold exactly one sequence: zero or
// several sequences is a MalformedInputError.
func ReadOne(path string) (Record, error) {
	records, err := ReadFASTA(path)
	if err != nil {
		return Record{}, err
	}
	if len(records) != 1 {
		return Record{}, perrors.MalformedInput("read query", "expected exactly one sequence in %s, found %d", path, len(records))
	}
	return records[0], nil
}
