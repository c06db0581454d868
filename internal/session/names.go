package session

import (
	"fmt"
	"math/rand/v2"
)

var chatColors = []string{
	"Amber", "Azure", "Beige", "Bronze", "Coral", "Crimson", "Cyan", "Emerald",
	"Fuchsia", "Gold", "Indigo", "Ivory", "Jade", "Lavender", "Lemon", "Lilac",
	"Magenta", "Maroon", "Mint", "Navy", "Olive", "Orange", "Orchid", "Peach",
	"Pearl", "Pink", "Plum", "Purple", "Rose", "Ruby", "Sage", "Salmon",
	"Sapphire", "Scarlet", "Silver", "Sky", "Slate", "Teal", "Turquoise", "Violet",
}

var chatAnimals = []string{
	"Bear", "Bunny", "Cat", "Deer", "Dolphin", "Dragon", "Eagle", "Falcon",
	"Fox", "Frog", "Hawk", "Hedgehog", "Jaguar", "Kitten", "Koala", "Leopard",
	"Lion", "Lynx", "Monkey", "Otter", "Owl", "Panda", "Panther", "Parrot",
	"Penguin", "Phoenix", "Pony", "Puppy", "Rabbit", "Raven", "Robin", "Shark",
	"Sparrow", "Tiger", "Turtle", "Unicorn", "Wolf", "Zebra", "Kitty", "Birdie",
}

// ChatName builds "<n> <Color> <Animal>", where n is one past the number of
// sessions the tenant already has. pick returns an index in [0, n).
func ChatName(existing int, pick func(n int) int) string {
	if pick == nil {
		pick = rand.IntN
	}
	return fmt.Sprintf("%d %s %s", existing+1, chatColors[pick(len(chatColors))], chatAnimals[pick(len(chatAnimals))])
}
