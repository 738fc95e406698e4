package session

import (
	"fmt"
	"math/rand/v2"
)

var (
	adjectives = []string{"Swift", "Blue", "Silent", "Bright", "Lucky", "Witty"}
	animals    = []string{"Fox", "Otter", "Hare", "Falcon", "Koala", "Panda"}
)

// RandomNickname returns names like "SilentOtter417". r may be nil.
func RandomNickname(r *rand.Rand) string {
	intN := rand.IntN
	if r != nil {
		intN = r.IntN
	}
	return fmt.Sprintf("%s%s%d", adjectives[intN(len(adjectives))], animals[intN(len(animals))], intN(1000))
}
