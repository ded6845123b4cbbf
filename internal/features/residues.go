package features

// Restypes are the 20 standard amino acids in one-hot order. Index 20 is
// the unknown residue X.
const Restypes = "ARNDCQEGHILKMFPSTWYV"

// NumRestypesWithX is the one-hot depth of aatype.
const NumRestypesWithX = len(Restypes) + 1

// unknownRestype is the one-hot index of X.
const unknownRestype = len(Restypes)

// restypeOrder maps a residue letter to its one-hot index, -1 if not standard.
var restypeOrder = func() [256]int {
	var order [256]int
	for i := range order {
		order[i] = -1
	}
	for i := 0; i < len(Restypes); i++ {
		order[Restypes[i]] = i
	}
	return order
}()

// RestypeIndex is the one-hot index of a residue letter. Lowercase letters
// are read as uppercase; anything that isn't one of the 20 standard amino
// acids is X.
func RestypeIndex(b byte) int {
	if b >= 'a' && b <= 'z' {
		b -= 'a' - 'A'
	}
	if i := restypeOrder[b]; i >= 0 {
		return i
	}
	return unknownRestype
}

// msaGap is the MSA id of the gap symbol.
const msaGap = 21

// msaUnknown is the MSA id of symbols missing from hhblitsAAToID.
const msaUnknown = 20

// hhblitsAAToID maps alignment symbols to the ids used in the msa feature.
// Ambiguity codes are resolved to a representative residue.
var hhblitsAAToID = map[byte]int32{
	'A': 0, 'B': 2, 'C': 1, 'D': 2, 'E': 3, 'F': 4, 'G': 5, 'H': 6,
	'I': 7, 'J': 20, 'K': 8, 'L': 9, 'M': 10, 'N': 11, 'O': 20, 'P': 12,
	'Q': 13, 'R': 14, 'S': 15, 'T': 16, 'U': 1, 'V': 17, 'W': 18, 'X': 20,
	'Y': 19, 'Z': 3, '-': msaGap,
}

// MSAResidueID is the msa feature id of an alignment symbol.
func MSAResidueID(b byte) int32 {
	if id, ok := hhblitsAAToID[b]; ok {
		return id
	}
	return msaUnknown
}
