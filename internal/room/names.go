package room

import (
	"crypto/rand"
	"math/big"
	"strings"
)

var adjectives = []string{
	"quiet", "steady", "focused", "sleepy", "cozy", "bright", "calm", "gentle", "brave", "swift",
	"golden", "silver", "amber", "emerald", "crimson", "misty", "sunny", "mellow", "patient", "eager",
}

var places = []string{
	"library", "attic", "meadow", "harbor", "studio", "garden", "cabin", "tower", "orchard", "lagoon",
	"lantern", "terrace", "canyon", "glacier", "valley", "island", "observatory", "greenhouse", "loft", "cove",
}

var things = []string{
	"tomato", "notebook", "pencil", "teapot", "compass", "acorn", "comet", "pebble", "biscuit", "marble",
	"maple", "otter", "owl", "fox", "hedgehog", "sparrow", "koala", "panda", "willow", "ember",
}

// GenerateName returns a random, memorable room name such as
// "quiet-library-teapot". The result always passes room id validation.
func GenerateName() string {
	lists := [][]string{adjectives, places, things}
	words := make([]string, len(lists))
	for i, list := range lists {
		words[i] = list[randomIndex(len(list))]
	}
	return strings.Join(words, "-")
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic("room: read random: " + err.Error())
	}
	return int(n.Int64())
}
