package blockdag

import (
	"github.com/dagchain-lab/dagchain/types"
)

// MetadataFromBlock derives the persisted metadata record of a block,
// validating the hash and sender widths before any state is touched.
func MetadataFromBlock(block *types.Block, invalid bool) (*types.BlockMetadata, error) {
	if len(block.BlockHash) != types.HashLength {
		return nil, &BlockHashIsMalformedError{BlockHash: block.BlockHash}
	}

	if len(block.Sender) != 0 && len(block.Sender) != types.ValidatorLength {
		return nil, &BlockSenderIsMalformedError{
			BlockHash: block.BlockHash,
			Sender:    block.Sender,
		}
	}

	meta := &types.BlockMetadata{
		BlockHash:      types.BytesToHash(block.BlockHash),
		Parents:        make([]types.Hash, len(block.Parents)),
		BlockNum:       block.BlockNum,
		SeqNum:         block.SeqNum,
		Sender:         types.CopyBytes(block.Sender),
		Justifications: make([]types.Justification, len(block.Justifications)),
		Bonds:          make([]types.Bond, len(block.Bonds)),
		Invalid:        invalid,
	}

	copy(meta.Parents, block.Parents)
	copy(meta.Justifications, block.Justifications)
	copy(meta.Bonds, block.Bonds)

	return meta, nil
}
