package utils

// EstimateTokens approximates a token count when a provider reports none.
// ASCII runes weigh 1 (about four per token), everything else weighs 4.
func EstimateTokens(text string) int {
	weight := 0
	for _, r := range text {
		if r <= 127 {
			weight++
		} else {
			weight += 4
		}
	}
	return (weight + 3) / 4
}
