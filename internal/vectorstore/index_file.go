package vectorstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Flat index file layout: a 4-byte magic, uint32 dimension, uint32 row
// count, then rows of little-endian float32 values. Vectors are stored as
// float32 to keep files dense; search converts back to float64.
var indexMagic = [4]byte{'A', 'T', 'V', '1'}

func writeIndexFile(path string, vectors [][]float64) error {
	if len(vectors) == 0 {
		return fmt.Errorf("no vectors to write")
	}
	dim := len(vectors[0])

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(indexMagic[:]); err != nil {
		tmp.Close()
		return err
	}
	header := []uint32{uint32(dim), uint32(len(vectors))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		tmp.Close()
		return err
	}
	buf := make([]byte, 4)
	for _, vec := range vectors {
		if len(vec) != dim {
			tmp.Close()
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", dim, len(vec))
		}
		for _, v := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
			if _, err := w.Write(buf); err != nil {
				tmp.Close()
				return err
			}
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readIndexFile(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("bad magic %q", magic)
	}
	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	dim, count := int(header[0]), int(header[1])
	if dim <= 0 || count <= 0 || dim > 1<<16 {
		return nil, fmt.Errorf("implausible index header: dim=%d count=%d", dim, count)
	}

	row := make([]byte, dim*4)
	vectors := make([][]float64, count)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, fmt.Errorf("read row %d: %w", i, err)
		}
		vec := make([]float64, dim)
		for j := 0; j < dim; j++ {
			bits := binary.LittleEndian.Uint32(row[j*4:])
			vec[j] = float64(math.Float32frombits(bits))
		}
		vectors[i] = vec
	}
	return vectors, nil
}
