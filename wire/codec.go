// Package wire implements the binary serialization codec for TSDF layers:
// a fixed-width block header followed by packed voxels, grounded on the
// teacher's binary.LittleEndian-based PCD encoder in
// pointcloud/pointcloud_file.go.
package wire

import (
	"bytes"
	"encoding/binary"
	"image/color"

	"github.com/pkg/errors"

	"github.com/Kabilan-n/voxblox/tsdf"
)

// blockHeader is the fixed-width preamble for one serialized block: its
// index, voxel size, and voxels-per-side, followed by voxelsPerSide^3
// packed voxels.
type blockHeader struct {
	I, J, K       int32
	VoxelSize     float64
	VoxelsPerSide int32
}

const voxelRecordSize = 4 + 4 + 1 + 1 + 1 + 1 // distance, weight (float32) + rgba

// EncodeBlock serializes one block's header and voxel data.
func EncodeBlock(b *tsdf.Block) []byte {
	var buf bytes.Buffer
	hdr := blockHeader{I: b.Index().I, J: b.Index().J, K: b.Index().K, VoxelSize: b.VoxelSize(), VoxelsPerSide: int32(b.VoxelsPerSide())}
	_ = binary.Write(&buf, binary.LittleEndian, hdr)
	for i := 0; i < b.NumVoxels(); i++ {
		v := b.VoxelByLinear(i)
		_ = binary.Write(&buf, binary.LittleEndian, float32(v.Distance))
		_ = binary.Write(&buf, binary.LittleEndian, float32(v.Weight))
		buf.WriteByte(v.Color.R)
		buf.WriteByte(v.Color.G)
		buf.WriteByte(v.Color.B)
		buf.WriteByte(v.Color.A)
	}
	return buf.Bytes()
}

// DecodeBlock parses one block's header and voxel data, writing voxels
// directly into dst's block at the header's index (allocated if absent,
// overwritten in place if present).
func DecodeBlock(dst *tsdf.Layer, data []byte) (tsdf.Index, error) {
	r := bytes.NewReader(data)
	var hdr blockHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return tsdf.Index{}, errors.Wrap(err, "reading block header")
	}
	idx := tsdf.Index{I: hdr.I, J: hdr.J, K: hdr.K}
	b := dst.AllocateBlock(idx)
	n := b.NumVoxels()
	for i := 0; i < n; i++ {
		var distance, weight float32
		if err := binary.Read(r, binary.LittleEndian, &distance); err != nil {
			return idx, errors.Wrapf(err, "reading voxel %d distance", i)
		}
		if err := binary.Read(r, binary.LittleEndian, &weight); err != nil {
			return idx, errors.Wrapf(err, "reading voxel %d weight", i)
		}
		var rgba [4]byte
		if _, err := r.Read(rgba[:]); err != nil {
			return idx, errors.Wrapf(err, "reading voxel %d color", i)
		}
		lx, ly, lz := linearToCoords(i, b.VoxelsPerSide())
		b.SetVoxel(lx, ly, lz, tsdf.Voxel{
			Distance: float64(distance),
			Weight:   float64(weight),
			Color:    color.NRGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]},
		})
	}
	return idx, nil
}

func linearToCoords(i, s int) (int, int, int) {
	lx := i % s
	ly := (i / s) % s
	lz := i / (s * s)
	return lx, ly, lz
}
