package termops

import (
	"encoding/binary"
	"hash/fnv"
)

// Phrase combines an ordered list of term IDs into one phrase ID.
//
// The high ClusterBits come from the first term and the middle bits from
// FNV-1a over every term, big-endian. The distance field is left clear, like
// a term ID, so a weight packed into a phrase ID masks back to the phrase.
// Phrases sharing a first term sort into one contiguous cluster, whatever
// follows. An empty list yields 0.
func (e *Encoder) Phrase(terms []uint32) uint32 {
	if len(terms) == 0 {
		return 0
	}

	h := fnv.New32a()
	var buf [4]byte
	for _, term := range terms {
		binary.BigEndian.PutUint32(buf[:], term)
		_, _ = h.Write(buf[:])
	}

	cluster := e.scheme.ClusterMask()
	return terms[0]&cluster | h.Sum32()&^cluster&e.scheme.BaseMask()
}

// Cluster recovers the cluster field of a phrase ID.
func (e *Encoder) Cluster(phrase uint32) uint32 {
	return phrase >> e.scheme.ClusterShift()
}

// PhraseOf tokenizes text and encodes the resulting terms as one phrase.
func (e *Encoder) PhraseOf(text string) uint32 {
	return e.Phrase(e.TermsOf(text))
}
