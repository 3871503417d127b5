package types

import (
	"fmt"

	"github.com/dogechain-lab/fastrlp"
)

// BlockMetadata is the per-block record kept by the DAG storage. It
// round-trips through a deterministic RLP encoding.
type BlockMetadata struct {
	BlockHash Hash
	Parents   []Hash
	BlockNum  int64
	SeqNum    int32

	// Sender is empty for the genesis block, ValidatorLength bytes otherwise
	Sender []byte

	Justifications []Justification
	Bonds          []Bond
	Invalid        bool
}

var marshalArenaPool fastrlp.ArenaPool

func (bm *BlockMetadata) MarshalRLP() []byte {
	return bm.MarshalRLPTo(nil)
}

func (bm *BlockMetadata) MarshalRLPTo(dst []byte) []byte {
	ar := marshalArenaPool.Get()
	defer marshalArenaPool.Put(ar)

	dst = bm.MarshalRLPWith(ar).MarshalTo(dst)
	ar.Reset()

	return dst
}

func (bm *BlockMetadata) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	v := ar.NewArray()

	v.Set(ar.NewBytes(bm.BlockHash.Bytes()))

	parents := ar.NewArray()
	for _, parent := range bm.Parents {
		parents.Set(ar.NewBytes(parent.Bytes()))
	}

	v.Set(parents)

	v.Set(ar.NewUint(uint64(bm.BlockNum)))
	v.Set(ar.NewUint(uint64(bm.SeqNum)))
	v.Set(ar.NewCopyBytes(bm.Sender))

	justifications := ar.NewArray()

	for _, justification := range bm.Justifications {
		j := ar.NewArray()
		j.Set(ar.NewBytes(justification.Validator.Bytes()))
		j.Set(ar.NewBytes(justification.BlockHash.Bytes()))
		justifications.Set(j)
	}

	v.Set(justifications)

	bonds := ar.NewArray()

	for _, bond := range bm.Bonds {
		b := ar.NewArray()
		b.Set(ar.NewBytes(bond.Validator.Bytes()))
		b.Set(ar.NewUint(uint64(bond.Stake)))
		bonds.Set(b)
	}

	v.Set(bonds)

	if bm.Invalid {
		v.Set(ar.NewUint(1))
	} else {
		v.Set(ar.NewUint(0))
	}

	return v
}

var metadataParserPool fastrlp.ParserPool

func (bm *BlockMetadata) UnmarshalRLP(input []byte) error {
	p := metadataParserPool.Get()
	defer metadataParserPool.Put(p)

	v, err := p.Parse(input)
	if err != nil {
		return err
	}

	return bm.unmarshalRLPFrom(v)
}

func (bm *BlockMetadata) unmarshalRLPFrom(v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) < 8 {
		return fmt.Errorf("incorrect number of elements to decode block metadata, expected 8 but found %d",
			len(elems))
	}

	// block hash
	if err = elems[0].GetHash(bm.BlockHash[:]); err != nil {
		return err
	}

	// parents
	parents, err := elems[1].GetElems()
	if err != nil {
		return err
	}

	bm.Parents = make([]Hash, len(parents))
	for i, parent := range parents {
		if err = parent.GetHash(bm.Parents[i][:]); err != nil {
			return err
		}
	}

	// block number
	blockNum, err := elems[2].GetUint64()
	if err != nil {
		return err
	}

	bm.BlockNum = int64(blockNum)

	// sequence number
	seqNum, err := elems[3].GetUint64()
	if err != nil {
		return err
	}

	bm.SeqNum = int32(seqNum)

	// sender
	if bm.Sender, err = elems[4].GetBytes(bm.Sender[:0]); err != nil {
		return err
	}

	if len(bm.Sender) != 0 && len(bm.Sender) != ValidatorLength {
		return fmt.Errorf("incorrect sender length %d in block metadata", len(bm.Sender))
	}

	// justifications
	justifications, err := elems[5].GetElems()
	if err != nil {
		return err
	}

	bm.Justifications = make([]Justification, len(justifications))

	for i, justification := range justifications {
		pair, err := justification.GetElems()
		if err != nil {
			return err
		}

		if len(pair) != 2 {
			return fmt.Errorf("incorrect number of elements to decode justification, expected 2 but found %d",
				len(pair))
		}

		if err = pair[0].GetHash(bm.Justifications[i].Validator[:]); err != nil {
			return err
		}

		if err = pair[1].GetHash(bm.Justifications[i].BlockHash[:]); err != nil {
			return err
		}
	}

	// bonds
	bonds, err := elems[6].GetElems()
	if err != nil {
		return err
	}

	bm.Bonds = make([]Bond, len(bonds))

	for i, bond := range bonds {
		pair, err := bond.GetElems()
		if err != nil {
			return err
		}

		if len(pair) != 2 {
			return fmt.Errorf("incorrect number of elements to decode bond, expected 2 but found %d",
				len(pair))
		}

		if err = pair[0].GetHash(bm.Bonds[i].Validator[:]); err != nil {
			return err
		}

		stake, err := pair[1].GetUint64()
		if err != nil {
			return err
		}

		bm.Bonds[i].Stake = int64(stake)
	}

	// invalid flag
	invalid, err := elems[7].GetUint64()
	if err != nil {
		return err
	}

	bm.Invalid = invalid != 0

	return nil
}

// Copy returns a deep copy
func (bm *BlockMetadata) Copy() *BlockMetadata {
	mm := new(BlockMetadata)
	mm.BlockHash = bm.BlockHash
	mm.BlockNum = bm.BlockNum
	mm.SeqNum = bm.SeqNum
	mm.Sender = CopyBytes(bm.Sender)
	mm.Invalid = bm.Invalid

	mm.Parents = make([]Hash, len(bm.Parents))
	copy(mm.Parents, bm.Parents)

	mm.Justifications = make([]Justification, len(bm.Justifications))
	copy(mm.Justifications, bm.Justifications)

	mm.Bonds = make([]Bond, len(bm.Bonds))
	copy(mm.Bonds, bm.Bonds)

	return mm
}

func (bm *BlockMetadata) String() string {
	return fmt.Sprintf("%s (number %d, seq %d)", bm.BlockHash, bm.BlockNum, bm.SeqNum)
}
