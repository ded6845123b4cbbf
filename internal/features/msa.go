package features

import (
	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
)

// MSAFeatures builds the alignment features of one or more MSAs of the same
// query:
//
//	msa                               [N, L] residue ids
//	deletion_matrix_int               [N, L]
//	num_alignments                    [L]    N, repeated
//	msa_uniprot_accession_identifiers [N]
//	msa_species_identifiers           [N]
//
// Rows are deduplicated across all MSAs: a sequence already seen, in this MSA
// or an earlier one, is dropped. N is the number of rows kept.
func MSAFeatures(msas ...*msa.Msa) (Dict, error) {
	if len(msas) == 0 {
		return nil, perrors.EmptyAlignment("msa features", "at least one MSA must be provided")
	}
	for i, m := range msas {
		if m.Len() == 0 {
			return nil, perrors.EmptyAlignment("msa features", "MSA %d must contain at least one sequence", i)
		}
	}

	numRes := len(msas[0].Sequences[0])

	var (
		rows       [][]int32
		deletions  [][]int32
		accessions []string
		species    []string
	)
	seen := make(map[string]bool)
	for i, m := range msas {
		for j, seq := range m.Sequences {
			if seen[seq] {
				continue
			}
			seen[seq] = true

			if len(seq) != numRes || len(m.DeletionMatrix[j]) != numRes {
				return nil, perrors.MalformedInput("msa features", "MSA %d row %d has length %d, query has %d", i, j, len(seq), numRes)
			}

			row := make([]int32, numRes)
			del := make([]int32, numRes)
			for k := 0; k < numRes; k++ {
				row[k] = MSAResidueID(seq[k])
				del[k] = int32(m.DeletionMatrix[j][k])
			}
			rows = append(rows, row)
			deletions = append(deletions, del)

			ids := msa.GetIdentifiers(m.Descriptions[j])
			accessions = append(accessions, ids.UniprotAccessionID)
			species = append(species, ids.SpeciesID)
		}
	}

	numAlignments := len(rows)
	msaArr := NewInt32(numAlignments, numRes)
	delArr := NewInt32(numAlignments, numRes)
	for i := range rows {
		copy(msaArr.Int32[i*numRes:], rows[i])
		copy(delArr.Int32[i*numRes:], deletions[i])
	}

	numAlignmentsArr := NewInt32(numRes)
	for i := range numAlignmentsArr.Int32 {
		numAlignmentsArr.Int32[i] = int32(numAlignments)
	}

	return Dict{
		"msa":                               msaArr,
		"deletion_matrix_int":               delArr,
		"num_alignments":                    numAlignmentsArr,
		"msa_uniprot_accession_identifiers": NewObject(accessions...),
		"msa_species_identifiers":           NewObject(species...),
	}, nil
}
