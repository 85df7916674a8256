package wire

import (
	"github.com/Kabilan-n/voxblox/tsdf"
)

// LayerMessage is one outbound or inbound layer transmission. FullReplace
// distinguishes "replace the remote layer entirely" from "apply this delta
// on top of existing state", per spec.md §4.G.
type LayerMessage struct {
	FullReplace bool
	Blocks      [][]byte // one EncodeBlock payload per block
}

// EncodeFull serializes every block in layer as a full-replace message.
func EncodeFull(layer *tsdf.Layer) LayerMessage {
	indices := layer.AllIndices()
	blocks := make([][]byte, 0, len(indices))
	for _, idx := range indices {
		b, ok := layer.GetBlock(idx)
		if !ok {
			continue
		}
		blocks = append(blocks, EncodeBlock(b))
	}
	return LayerMessage{FullReplace: true, Blocks: blocks}
}

// EncodeDelta serializes only the blocks carrying the kMap marker (set by
// the integrator on every touched block) and atomically clears that marker
// on each, so the next EncodeDelta only picks up newly touched blocks.
func EncodeDelta(layer *tsdf.Layer) LayerMessage {
	indices := layer.BlocksWithMarker(tsdf.MapUpdated)
	blocks := make([][]byte, 0, len(indices))
	for _, idx := range indices {
		b, ok := layer.GetBlock(idx)
		if !ok {
			continue
		}
		blocks = append(blocks, EncodeBlock(b))
		b.ClearMarker(tsdf.MapUpdated)
	}
	return LayerMessage{FullReplace: false, Blocks: blocks}
}

// Apply writes msg into dst. A full-replace message clears dst first; a
// delta message only overwrites the blocks it carries, leaving the rest of
// dst untouched.
func Apply(dst *tsdf.Layer, msg LayerMessage) error {
	if msg.FullReplace {
		dst.RemoveAllBlocks()
	}
	for _, raw := range msg.Blocks {
		if _, err := DecodeBlock(dst, raw); err != nil {
			return err
		}
	}
	return nil
}
