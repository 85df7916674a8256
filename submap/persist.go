package submap

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/Kabilan-n/voxblox/wire"
)

const dirPerm = 0o777

// WriteToDirectory writes rec to <root>/voxblox_submap_<N>/volumetric_map.tsdf
// and .../robot_trajectory.traj, creating parent directories as needed, and
// returns the submap directory path on success.
//
// root must already be validated absolute and ASCII-only by the caller
// (voxconfig.Config.Validate) — an I/O failure here (unwritable directory)
// is reported to the caller to log and skip persistence for this submap,
// per the error taxonomy; it never panics or aborts the pipeline.
func WriteToDirectory(root string, rec Record) (string, error) {
	dir := filepath.Join(root, fmt.Sprintf("voxblox_submap_%d", rec.Number))
	if err := createPath(dir); err != nil {
		return "", errors.Wrapf(err, "creating submap directory %s", dir)
	}

	mapPath := filepath.Join(dir, "volumetric_map.tsdf")
	if err := writeMap(mapPath, rec); err != nil {
		return "", errors.Wrapf(err, "writing %s", mapPath)
	}

	trajPath := filepath.Join(dir, "robot_trajectory.traj")
	if err := writeTrajectory(trajPath, rec); err != nil {
		return "", errors.Wrapf(err, "writing %s", trajPath)
	}

	return dir, nil
}

// createPath is MkdirAll under a single exit: the original implementation's
// createPath masked a mkdir(EEXIST) branch behind a boolean return in a way
// that could also hide real errors (spec.md §9 open question); os.MkdirAll
// already treats an existing directory as success and returns a genuine
// error otherwise, so there is nothing extra to special-case here.
func createPath(dir string) error {
	return os.MkdirAll(dir, dirPerm)
}

func writeMap(path string, rec Record) (err error) {
	f, createErr := os.Create(path)
	if createErr != nil {
		return createErr
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	if err = binary.Write(f, binary.LittleEndian, uint32(len(rec.Map.Blocks))); err != nil {
		return err
	}
	for _, block := range rec.Map.Blocks {
		if err = binary.Write(f, binary.LittleEndian, uint32(len(block))); err != nil {
			return err
		}
		if _, err = f.Write(block); err != nil {
			return err
		}
	}
	return nil
}

func writeTrajectory(path string, rec Record) (err error) {
	f, createErr := os.Create(path)
	if createErr != nil {
		return createErr
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	idBytes := rec.ID
	if err = binary.Write(f, binary.LittleEndian, idBytes); err != nil {
		return err
	}
	if err = writeString(f, rec.RobotName); err != nil {
		return err
	}
	if err = writeString(f, rec.FrameID); err != nil {
		return err
	}
	if err = binary.Write(f, binary.LittleEndian, uint32(len(rec.Trajectory))); err != nil {
		return err
	}
	for _, s := range rec.Trajectory {
		if err = binary.Write(f, binary.LittleEndian, s.Timestamp.UnixNano()); err != nil {
			return err
		}
		p := s.Pose.Point()
		if err = binary.Write(f, binary.LittleEndian, [3]float64{p.X, p.Y, p.Z}); err != nil {
			return err
		}
		q := s.Pose.Orientation()
		if err = binary.Write(f, binary.LittleEndian, [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}); err != nil {
			return err
		}
	}
	return nil
}

// ReadMapFile reads back a volumetric_map.tsdf file written by writeMap,
// used by the load_map command. The result is always a full-replace
// message: a file on disk necessarily describes a complete layer, never a
// delta against live state.
func ReadMapFile(path string) (wire.LayerMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return wire.LayerMessage{}, err
	}
	defer f.Close()

	var numBlocks uint32
	if err := binary.Read(f, binary.LittleEndian, &numBlocks); err != nil {
		return wire.LayerMessage{}, errors.Wrap(err, "reading block count")
	}

	blocks := make([][]byte, 0, numBlocks)
	for i := uint32(0); i < numBlocks; i++ {
		var blockLen uint32
		if err := binary.Read(f, binary.LittleEndian, &blockLen); err != nil {
			return wire.LayerMessage{}, errors.Wrapf(err, "reading block %d length", i)
		}
		block := make([]byte, blockLen)
		if _, err := io.ReadFull(f, block); err != nil {
			return wire.LayerMessage{}, errors.Wrapf(err, "reading block %d", i)
		}
		blocks = append(blocks, block)
	}

	return wire.LayerMessage{FullReplace: true, Blocks: blocks}, nil
}

func writeString(f *os.File, s string) error {
	if err := binary.Write(f, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := f.WriteString(s)
	return err
}
