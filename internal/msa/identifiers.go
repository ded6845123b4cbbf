package msa

import (
	"regexp"
	"strings"
)

// uniprotPattern matches UniProtKB sequence identifiers, ex:
//
//	tr|A0A146SKV9|A0A146SKV9_FUNHE
//	sp|P0C2L1|A3X1_LOXLA
//
// An isoform suffix on the accession (_0) and a trailing small BFD
// suffix (_12) are ignored.
var uniprotPattern = regexp.MustCompile(`^(?:tr|sp)\|([A-Za-z0-9]{6,10})(?:_\d)?\|(?:[A-Za-z0-9]+)_([A-Za-z0-9]{1,5})(?:_\d+)?$`)

// Identifiers of an alignment row, parsed from its description.
type Identifiers struct {
	// UniprotAccessionID, ex: "A0A146SKV9"
	UniprotAccessionID string

	// SpeciesID is the mnemonic species code, ex: "FUNHE"
	SpeciesID string
}

// GetIdentifiers extracts the UniProt accession and species code from an
// alignment row description. It never fails: descriptions that don't carry
// a UniProt identifier give empty Identifiers.
func GetIdentifiers(description string) Identifiers {
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return Identifiers{}
	}

	// drop a "/start-end" range suffix
	id, _, _ := strings.Cut(fields[0], "/")

	match := uniprotPattern.FindStringSubmatch(strings.TrimSpace(id))
	if match == nil {
		return Identifiers{}
	}
	return Identifiers{
		UniprotAccessionID: match[1],
		SpeciesID:          match[2],
	}
}
