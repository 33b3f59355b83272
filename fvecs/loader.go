package fvecs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/hupe1980/vann/quantization"
)

// LoadFloat32 reads an fvecs file (§6): each record is dim:i32 LE
// followed by dim×f32 LE. N is deduced from the file size; every
// record must declare the same dim, and the file size must be an
// exact multiple of the record size.
//
// The returned corpus is 64-byte aligned (§12.3) so it can be handed
// directly to a quantization.Quantizer's Train without a defensive
// copy.
func LoadFloat32(path string) (data []float32, n, dim int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("fvecs: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("fvecs: stat %s: %w", path, err)
	}

	r := bufio.NewReaderSize(f, 256*1024)

	var dimBuf [4]byte
	if _, err := io.ReadFull(r, dimBuf[:]); err != nil {
		return nil, 0, 0, fmt.Errorf("fvecs: read first record's dim: %w", err)
	}
	dim = int(binary.LittleEndian.Uint32(dimBuf[:]))

	recordSize := int64(4 + dim*4)
	if recordSize <= 4 || info.Size()%recordSize != 0 {
		return nil, 0, 0, fmt.Errorf("%w: size=%d record_size=%d", ErrTruncated, info.Size(), recordSize)
	}
	n = int(info.Size() / recordSize)

	data = quantization.AlignedFloat32(n * dim)
	rowBytes := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)

	if _, err := io.ReadFull(r, rowBytes[:dim*4]); err != nil {
		return nil, 0, 0, fmt.Errorf("fvecs: read record 0: %w", err)
	}

	for i := 1; i < n; i++ {
		if _, err := io.ReadFull(r, dimBuf[:]); err != nil {
			return nil, 0, 0, fmt.Errorf("fvecs: read record %d's dim: %w", i, err)
		}
		if int(binary.LittleEndian.Uint32(dimBuf[:])) != dim {
			return nil, 0, 0, fmt.Errorf("%w: record %d", ErrInconsistentDim, i)
		}
		if _, err := io.ReadFull(r, rowBytes[i*dim*4:(i+1)*dim*4]); err != nil {
			return nil, 0, 0, fmt.Errorf("fvecs: read record %d: %w", i, err)
		}
	}
	return data, n, dim, nil
}

// LoadInt32 reads an ivecs file: the same record layout as fvecs but
// with dim×i32 LE payloads, used for the ground-truth neighbor lists
// the CLI driver scores recall against.
func LoadInt32(path string) (data []int32, n, dim int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("fvecs: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("fvecs: stat %s: %w", path, err)
	}

	r := bufio.NewReaderSize(f, 256*1024)

	var dimBuf [4]byte
	if _, err := io.ReadFull(r, dimBuf[:]); err != nil {
		return nil, 0, 0, fmt.Errorf("fvecs: read first record's dim: %w", err)
	}
	dim = int(binary.LittleEndian.Uint32(dimBuf[:]))

	recordSize := int64(4 + dim*4)
	if recordSize <= 4 || info.Size()%recordSize != 0 {
		return nil, 0, 0, fmt.Errorf("%w: size=%d record_size=%d", ErrTruncated, info.Size(), recordSize)
	}
	n = int(info.Size() / recordSize)

	data = make([]int32, n*dim)
	rowBytes := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)

	if _, err := io.ReadFull(r, rowBytes[:dim*4]); err != nil {
		return nil, 0, 0, fmt.Errorf("fvecs: read record 0: %w", err)
	}

	for i := 1; i < n; i++ {
		if _, err := io.ReadFull(r, dimBuf[:]); err != nil {
			return nil, 0, 0, fmt.Errorf("fvecs: read record %d's dim: %w", i, err)
		}
		if int(binary.LittleEndian.Uint32(dimBuf[:])) != dim {
			return nil, 0, 0, fmt.Errorf("%w: record %d", ErrInconsistentDim, i)
		}
		if _, err := io.ReadFull(r, rowBytes[i*dim*4:(i+1)*dim*4]); err != nil {
			return nil, 0, 0, fmt.Errorf("fvecs: read record %d: %w", i, err)
		}
	}
	return data, n, dim, nil
}
