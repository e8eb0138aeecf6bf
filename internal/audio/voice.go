package audio

// VoiceToStream converts a synthesized voice clip (24kHz mono) to the stream
// format (48kHz interleaved stereo). The 2x upsample interpolates linearly
// between neighboring samples, which is plenty for speech.
func VoiceToStream(mono []int16) []int16 {
	if len(mono) == 0 {
		return nil
	}
	out := make([]int16, 0, len(mono)*2*Channels)
	for i, s := range mono {
		next := s
		if i+1 < len(mono) {
			next = mono[i+1]
		}
		mid := int16((int32(s) + int32(next)) / 2)
		out = append(out, s, s, mid, mid)
	}
	return out
}
