// Package normalize computes canonical minimal representations of sequence edits.
package normalize

// TrimLeft removes the longest run of leading symbols shared by every sequence
// and returns how many symbols were removed along with the remainders.
// The remainders are sub-slices of the inputs; nothing is copied or modified.
//
// With no sequences it returns 0, nil. An empty sequence stops trimming
// immediately.
func TrimLeft[S ~[]E, E comparable](seqs ...S) (int, []S) {
	if len(seqs) == 0 {
		return 0, nil
	}
	out := make([]S, len(seqs))
	copy(out, seqs)

	trimmed := 0
	for {
		for _, s := range out {
			if len(s) == 0 {
				return trimmed, out
			}
		}
		first := out[0][0]
		for _, s := range out[1:] {
			if s[0] != first {
				return trimmed, out
			}
		}
		for i := range out {
			out[i] = out[i][1:]
		}
		trimmed++
	}
}
