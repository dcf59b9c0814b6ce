package format

import "bytes"

// FlatSaltOps is the lifecycle for salts that are plain byte strings.
// A nil salt stands for an unsalted format.
func FlatSaltOps() SaltOps {
	return SaltOps{
		Create: func(s Salt) Salt {
			b, ok := s.([]byte)
			if !ok {
				return s
			}
			return bytes.Clone(b)
		},
		Equal: func(a, b Salt) bool {
			ab, aok := a.([]byte)
			bb, bok := b.([]byte)
			if aok && bok {
				return bytes.Equal(ab, bb)
			}
			return a == nil && b == nil
		},
		Release: func(Salt) {},
	}
}
