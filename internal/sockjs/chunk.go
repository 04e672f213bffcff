package sockjs

// splitPayload splits p into ordered chunks of at most max bytes each.
// Chunks alias p, nothing is copied. Concatenating the chunks yields p
// byte for byte. Non-positive max means no splitting.
func splitPayload(p []byte, max int) [][]byte {
	if max <= 0 || len(p) <= max {
		return [][]byte{p}
	}
	chunks := make([][]byte, 0, (len(p)+max-1)/max)
	for len(p) > max {
		chunks = append(chunks, p[:max])
		p = p[max:]
	}
	return append(chunks, p)
}
