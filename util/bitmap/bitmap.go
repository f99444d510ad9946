// Package bitmap provides a packed bit array used by the allocator for the
// inode bitmap and the data-block bitmap.
//
// Bit numbering is MSB-first within each byte: bit 0 of the bitmap is the
// 0x80 bit of byte 0, bit 7 is the 0x01 bit of byte 0, bit 8 is the 0x80 bit
// of byte 1, and so on. This matches the on-disk layout mandated for this
// filesystem and is deliberately the opposite of a conventional LSB-first
// bitset.
package bitmap

import "fmt"

// Bitmap holds a packed, MSB-first bit array over a byte slice.
type Bitmap struct {
	bits []byte
}

// Run describes a maximal contiguous run of zero (free) bits.
type Run struct {
	Start int
	Count int
}

// FromBytes builds a Bitmap that is a copy of b.
func FromBytes(b []byte) *Bitmap {
	bits := make([]byte, len(b))
	copy(bits, b)
	return &Bitmap{bits: bits}
}

// NewBytes creates a new, all-zero bitmap of the given byte length.
func NewBytes(nbytes int) *Bitmap {
	if nbytes < 0 {
		nbytes = 0
	}
	return &Bitmap{bits: make([]byte, nbytes)}
}

// NewBits creates a new, all-zero bitmap able to address nBits entries.
func NewBits(nBits int) *Bitmap {
	if nBits < 0 {
		nBits = 0
	}
	return NewBytes((nBits + 7) / 8)
}

// ToBytes returns a copy of the underlying bytes.
func (bm *Bitmap) ToBytes() []byte {
	b := make([]byte, len(bm.bits))
	copy(b, bm.bits)
	return b
}

// FromBytes overwrites the bitmap contents with b.
func (bm *Bitmap) FromBytes(b []byte) {
	bm.bits = make([]byte, len(b))
	copy(bm.bits, b)
}

// Len returns the number of addressable bits.
func (bm *Bitmap) Len() int {
	return len(bm.bits) * 8
}

func findBitForIndex(location int) (byteNumber int, bitNumber uint) {
	return location / 8, uint(location % 8)
}

func mask(bitNumber uint) byte {
	return 0x80 >> bitNumber
}

// IsSet reports whether the bit at location is set. It returns an error if
// location is out of range.
func (bm *Bitmap) IsSet(location int) (bool, error) {
	if location < 0 {
		return false, fmt.Errorf("location %d is negative", location)
	}
	byteNumber, bitNumber := findBitForIndex(location)
	if byteNumber >= len(bm.bits) {
		return false, fmt.Errorf("location %d is not in %d-bit bitmap", location, bm.Len())
	}
	m := mask(bitNumber)
	return bm.bits[byteNumber]&m == m, nil
}

// Set sets the bit at location to 1.
func (bm *Bitmap) Set(location int) error {
	if location < 0 {
		return fmt.Errorf("location %d is negative", location)
	}
	byteNumber, bitNumber := findBitForIndex(location)
	if byteNumber >= len(bm.bits) {
		return fmt.Errorf("location %d is not in %d-bit bitmap", location, bm.Len())
	}
	bm.bits[byteNumber] |= mask(bitNumber)
	return nil
}

// Clear sets the bit at location to 0.
func (bm *Bitmap) Clear(location int) error {
	if location < 0 {
		return fmt.Errorf("location %d is negative", location)
	}
	byteNumber, bitNumber := findBitForIndex(location)
	if byteNumber >= len(bm.bits) {
		return fmt.Errorf("location %d is not in %d-bit bitmap", location, bm.Len())
	}
	bm.bits[byteNumber] &^= mask(bitNumber)
	return nil
}

// FirstFree scans bitCount bits in bit order starting at bit 0 and returns
// the index of the first unset bit, or -1 if none is free. bitCount bounds
// the scan to fewer bits than the full backing byte slice would otherwise
// expose (the last bitmap sector is usually only partially meaningful).
func (bm *Bitmap) FirstFree(bitCount int) int {
	total := bm.Len()
	if bitCount < total {
		total = bitCount
	}
	for i := 0; i < total; i++ {
		set, err := bm.IsSet(i)
		if err != nil {
			return -1
		}
		if !set {
			return i
		}
	}
	return -1
}

// FreeList returns every maximal run of zero bits within the first bitCount
// bits, in ascending order of Start.
func (bm *Bitmap) FreeList(bitCount int) []Run {
	total := bm.Len()
	if bitCount < total {
		total = bitCount
	}
	var runs []Run
	start := -1
	count := 0
	for i := 0; i < total; i++ {
		set, err := bm.IsSet(i)
		if err != nil {
			break
		}
		if !set {
			if start == -1 {
				start = i
			}
			count++
			continue
		}
		if start != -1 {
			runs = append(runs, Run{Start: start, Count: count})
			start = -1
			count = 0
		}
	}
	if start != -1 {
		runs = append(runs, Run{Start: start, Count: count})
	}
	return runs
}

// AllocateN chooses n distinct free bit indices within the first bitCount
// bits, preferring contiguity, per the policy:
//
//  1. if any free run's length equals n, return exactly that run;
//  2. else if any free run's length exceeds n, return the first n indices
//     of the first such run;
//  3. else if there are at least n free bits total, concatenate free runs
//     in scan order until n indices are collected;
//  4. else fail.
//
// It does not mark any bits as used; callers must call SetBits with the
// result to commit the allocation.
func (bm *Bitmap) AllocateN(bitCount, n int) ([]int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid allocation count %d", n)
	}
	runs := bm.FreeList(bitCount)

	for _, r := range runs {
		if r.Count == n {
			return indices(r.Start, n), nil
		}
	}
	for _, r := range runs {
		if r.Count > n {
			return indices(r.Start, n), nil
		}
	}

	total := 0
	for _, r := range runs {
		total += r.Count
	}
	if total < n {
		return nil, fmt.Errorf("not enough free bits: need %d, have %d", n, total)
	}

	out := make([]int, 0, n)
	for _, r := range runs {
		for i := 0; i < r.Count && len(out) < n; i++ {
			out = append(out, r.Start+i)
		}
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func indices(start, n int) []int {
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = start + i
	}
	return out
}

// SetBits sets every bit index in locs to 1.
func (bm *Bitmap) SetBits(locs []int) error {
	for _, loc := range locs {
		if err := bm.Set(loc); err != nil {
			return err
		}
	}
	return nil
}
