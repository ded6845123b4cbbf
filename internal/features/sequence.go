package features

// SequenceFeatures builds the per-residue features of a query sequence:
//
//	aatype                   [L, 21] one-hot residue type, unknown residues as X
//	between_segment_residues [L]     zeros
//	domain_name              [1]     the description
//	residue_index            [L]     0..L-1
//	seq_length               [L]     L, repeated
//	sequence                 [1]     the sequence
//
// It never fails: any byte outside the standard alphabet encodes as X.
func SequenceFeatures(sequence, description string) Dict {
	numRes := len(sequence)

	aatype := NewInt32(numRes, NumRestypesWithX)
	for i := 0; i < numRes; i++ {
		aatype.Int32[i*NumRestypesWithX+RestypeIndex(sequence[i])] = 1
	}

	residueIndex := NewInt32(numRes)
	seqLength := NewInt32(numRes)
	for i := 0; i < numRes; i++ {
		residueIndex.Int32[i] = int32(i)
		seqLength.Int32[i] = int32(numRes)
	}

	return Dict{
		"aatype":                   aatype,
		"between_segment_residues": NewInt32(numRes),
		"domain_name":              NewObject(description),
		"residue_index":            residueIndex,
		"seq_length":               seqLength,
		"sequence":                 NewObject(sequence),
	}
}
