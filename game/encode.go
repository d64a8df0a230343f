package game

// EncodedSize is the length of the feature tensor fed to the network:
// 7 columns x 6 rows x 3 channels.
const EncodedSize = Cols * Rows * 3

// Encode writes the position into dst as a (col, row, channel) tensor.
//
// Channels: 1.0 everywhere if X is to move, else 0.0; 1.0 where X occupies;
// 1.0 where O occupies. dst must have at least EncodedSize elements.
func (s *State) Encode(dst []float32) {
	_ = dst[EncodedSize-1]
	turn := float32(0)
	if s.moveN%2 == 0 {
		turn = 1
	}
	for i := 0; i < Cells; i++ {
		col := i % Cols
		row := i / Cols
		base := (col*Rows + row) * 3
		dst[base] = turn
		if s.x&(1<<i) != 0 {
			dst[base+1] = 1
		} else {
			dst[base+1] = 0
		}
		if s.o&(1<<i) != 0 {
			dst[base+2] = 1
		} else {
			dst[base+2] = 0
		}
	}
}

// Encoded returns a freshly allocated feature tensor for the position.
func (s *State) Encoded() []float32 {
	out := make([]float32, EncodedSize)
	s.Encode(out)
	return out
}
