package loader

import (
	"math/bits"

	"github.com/RoaringBitmap/roaring"

	"github.com/atinyakov/hashloader/internal/format"
)

// indexThreshold is the population from which a bucket gets a digest
// index. Bitsliced formats compare all candidates at once cheaply, so they
// need a larger bucket before an index pays off.
func (d *Database) indexThreshold() int {
	threshold := format.HashThresholds[0]
	if d.format.Params().Flags&format.FlagBitslice != 0 {
		archLog := bits.Len(uint(bits.UintSize)) - 1
		threshold = 5*bits.UintSize/archLog + 1
	}
	return threshold << d.opts.memSaving()
}

// indexWidth picks the digest index width for a bucket of count records,
// or -1 for none.
func (d *Database) indexWidth(count, threshold int) int {
	size := -1
	if count >= threshold {
		for size = format.HashWidths - 1; size >= 0; size-- {
			if count >= format.HashThresholds[size] && d.format.BinaryHash(size) != nil {
				break
			}
		}
	}
	if size < 0 {
		return -1
	}
	for size -= d.opts.memSaving(); size >= 0; size-- {
		if d.format.BinaryHash(size) != nil {
			return size
		}
	}
	return -1
}

func (d *Database) initHash() {
	if d.format == nil {
		return
	}
	threshold := d.indexThreshold()
	for _, s := range d.salts {
		s.HashSize = d.indexWidth(s.Count, threshold)
		d.initHashForSalt(s)
	}
}

// initHashForSalt builds the bitmap and chains of s at s.HashSize and
// recounts its records.
func (d *Database) initHashForSalt(s *Salt) {
	s.bitmap, s.hash, s.hashFunc = nil, nil, nil
	s.Index = format.NoIndex
	s.Count = 0

	if s.HashSize < 0 {
		for p := s.list; p != nil; p = p.next {
			p.nextHash = nil
			s.Count++
		}
		return
	}

	bitmapSize := format.HashSizes[s.HashSize]
	chains := bitmapSize >> PasswordHashShift
	if chains > 1 {
		s.hash = make([]*Password, chains)
	}
	s.bitmap = roaring.New()
	s.hashFunc = d.format.BinaryHash(s.HashSize)
	s.Index = d.format.GetHash(s.HashSize)

	for p := s.list; p != nil; p = p.next {
		h := s.hashFunc(p.binary)
		s.bitmap.Add(h)
		if s.hash != nil {
			h >>= PasswordHashShift
			p.nextHash = s.hash[h]
			s.hash[h] = p
		} else {
			p.nextHash = p.next
		}
		s.Count++
	}
	s.bitmap.RunOptimize()
}
