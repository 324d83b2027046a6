package maskio

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var npyMagic = []byte("\x93NUMPY")

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// npyArray is a decoded NumPy array flattened in C order
type npyArray struct {
	shape []int
	data  []int64
}

// readNPY decodes a single .npy stream holding at most avail bytes. Values
// are converted to int64; floating point values are truncated toward zero.
func readNPY(r io.Reader, avail int64) (*npyArray, error) {
	magic := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("reading npy preamble: %w", err)
	}
	if !bytes.Equal(magic[:len(npyMagic)], npyMagic) {
		return nil, fmt.Errorf("bad npy magic: %w", ErrUnsupportedFormat)
	}
	avail -= int64(len(magic))

	var headerLen int64
	switch major := magic[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("reading npy header length: %w", err)
		}
		headerLen = int64(n)
		avail -= 2
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("reading npy header length: %w", err)
		}
		headerLen = int64(n)
		avail -= 4
	default:
		return nil, fmt.Errorf("npy version %d: %w", major, ErrUnsupportedFormat)
	}
	if headerLen > avail {
		return nil, fmt.Errorf("npy header of %d bytes exceeds file: %w", headerLen, ErrUnsupportedFormat)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading npy header: %w", err)
	}
	avail -= headerLen

	descr, shape, err := parseNPYHeader(string(header))
	if err != nil {
		return nil, err
	}
	kind, size, err := parseDescr(descr)
	if err != nil {
		return nil, err
	}

	count, err := elementCount(shape)
	if err != nil {
		return nil, err
	}
	if count > math.MaxInt/size || int64(count*size) > avail {
		return nil, fmt.Errorf("npy shape %v needs more than the %d bytes present: %w",
			shape, avail, ErrUnsupportedFormat)
	}

	data, err := readNPYData(r, kind, size, count)
	if err != nil {
		return nil, err
	}
	return &npyArray{shape: shape, data: data}, nil
}

// elementCount multiplies out a shape, rejecting products that overflow int
func elementCount(shape []int) (int, error) {
	count := 1
	for _, d := range shape {
		if d != 0 && count > math.MaxInt/d {
			return 0, fmt.Errorf("npy shape %v overflows: %w", shape, ErrUnsupportedFormat)
		}
		count *= d
	}
	return count, nil
}

func parseNPYHeader(h string) (string, []int, error) {
	m := descrRe.FindStringSubmatch(h)
	if m == nil {
		return "", nil, fmt.Errorf("npy header without descr: %w", ErrUnsupportedFormat)
	}
	descr := m[1]

	if f := fortranRe.FindStringSubmatch(h); f != nil && f[1] == "True" {
		return "", nil, fmt.Errorf("fortran-ordered arrays: %w", ErrUnsupportedFormat)
	}

	s := shapeRe.FindStringSubmatch(h)
	if s == nil {
		return "", nil, fmt.Errorf("npy header without shape: %w", ErrUnsupportedFormat)
	}
	var shape []int
	for _, part := range strings.Split(s[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(part, "L"))
		if err != nil || n < 0 {
			return "", nil, fmt.Errorf("bad npy shape %q: %w", s[1], ErrUnsupportedFormat)
		}
		shape = append(shape, n)
	}
	return descr, shape, nil
}

// parseDescr splits a dtype string such as "<i4" into kind and item size
func parseDescr(descr string) (byte, int, error) {
	if len(descr) < 3 {
		return 0, 0, fmt.Errorf("dtype %q: %w", descr, ErrUnsupportedFormat)
	}
	order, kind := descr[0], descr[1]
	size, err := strconv.Atoi(descr[2:])
	if err != nil {
		return 0, 0, fmt.Errorf("dtype %q: %w", descr, ErrUnsupportedFormat)
	}
	if order == '>' && size > 1 {
		return 0, 0, fmt.Errorf("big-endian dtype %q: %w", descr, ErrUnsupportedFormat)
	}

	switch {
	case (kind == 'b' || kind == 'u' || kind == 'i') && size == 1,
		(kind == 'u' || kind == 'i') && (size == 2 || size == 4 || size == 8),
		kind == 'f' && (size == 4 || size == 8):
		return kind, size, nil
	}
	return 0, 0, fmt.Errorf("dtype %q: %w", descr, ErrUnsupportedFormat)
}

func readNPYData(r io.Reader, kind byte, size, count int) ([]int64, error) {
	raw := make([]byte, count*size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading npy data: %w", err)
	}

	out := make([]int64, count)
	le := binary.LittleEndian
	for i := range out {
		b := raw[i*size : (i+1)*size]
		switch {
		case (kind == 'b' || kind == 'u') && size == 1:
			out[i] = int64(b[0])
		case kind == 'i' && size == 1:
			out[i] = int64(int8(b[0]))
		case kind == 'u' && size == 2:
			out[i] = int64(le.Uint16(b))
		case kind == 'i' && size == 2:
			out[i] = int64(int16(le.Uint16(b)))
		case kind == 'u' && size == 4:
			out[i] = int64(le.Uint32(b))
		case kind == 'i' && size == 4:
			out[i] = int64(int32(le.Uint32(b)))
		case size == 8 && kind != 'f':
			out[i] = int64(le.Uint64(b))
		case kind == 'f' && size == 4:
			out[i] = int64(math.Float32frombits(le.Uint32(b)))
		default:
			out[i] = int64(math.Float64frombits(le.Uint64(b)))
		}
	}
	return out, nil
}

// readNPZ opens a NumPy archive and decodes the member holding the masks.
// A member named "masks.npy" wins; otherwise the first .npy by name is used.
func readNPZ(path string) (*npyArray, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening npz: %w", err)
	}
	defer zr.Close()

	var members []*zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".npy") {
			members = append(members, f)
		}
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("npz %s has no arrays: %w", path, ErrUnsupportedFormat)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })

	chosen := members[0]
	for _, f := range members {
		if f.Name == "masks.npy" {
			chosen = f
			break
		}
	}

	rc, err := chosen.Open()
	if err != nil {
		return nil, fmt.Errorf("opening npz member %s: %w", chosen.Name, err)
	}
	defer rc.Close()

	avail := int64(math.MaxInt64)
	if chosen.UncompressedSize64 < math.MaxInt64 {
		avail = int64(chosen.UncompressedSize64)
	}
	return readNPY(rc, avail)
}
