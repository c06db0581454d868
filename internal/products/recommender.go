// Package products picks catalog items to show alongside a reply.
package products

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

const (
	MaxCards    = 5
	minWordLen  = 3
	nameWeight  = 5
	descWeight  = 1
	inlineOpen  = "[PRODUCTS]"
	inlineClose = "[/PRODUCTS]"
)

var shoppingKeywords = []string{
	"product", "products", "item", "items", "buy", "purchase", "shop", "shopping",
	"price", "prices", "cost", "costs", "how much", "catalog", "catalogue",
	"what do you sell", "what do you have", "show me", "recommend", "suggestion",
	"best seller", "bestseller", "popular", "trending", "new arrival", "collection",
	"stock", "available", "in stock", "inventory", "offer", "discount", "sale",
	"kya hai", "kya bechte", "dikhao", "batao products", "khareedna",
}

// IsProductQuery reports whether message shows shopping intent.
func IsProductQuery(message string) bool {
	_, ok := utils.MatchPhrase(message, shoppingKeywords)
	return ok
}

// Recommend ranks the catalog against message when it shows shopping
// intent. Every product is ranked, so a low score never filters one out.
func Recommend(message string, catalog []core.Product) []core.ProductCard {
	if len(catalog) == 0 || !IsProductQuery(message) {
		return []core.ProductCard{}
	}

	words := utils.QueryWords(message, minWordLen)

	type scored struct {
		product core.Product
		score   int
	}
	ranked := make([]scored, len(catalog))
	for i, p := range catalog {
		ranked[i] = scored{product: p, score: Score(words, p)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > MaxCards {
		ranked = ranked[:MaxCards]
	}
	cards := make([]core.ProductCard, len(ranked))
	for i, r := range ranked {
		cards[i] = core.ProductCard{
			Name:        r.product.Name,
			Price:       r.product.Price,
			ImageURL:    r.product.ImageURL,
			URL:         r.product.URL,
			Description: r.product.Description,
		}
	}
	return cards
}

// Score adds 5 for each word found in the name and 1 for each found in the
// description.
func Score(words []string, p core.Product) int {
	name := strings.ToLower(p.Name)
	desc := strings.ToLower(p.Description)
	score := 0
	for _, w := range words {
		if strings.Contains(name, w) {
			score += nameWeight
		}
		if strings.Contains(desc, w) {
			score += descWeight
		}
	}
	return score
}

// EncodeInline appends the cards to a stored bot message as a delimited
// block, keeping the transcript a single string.
func EncodeInline(message string, cards []core.ProductCard) (string, error) {
	if len(cards) == 0 {
		return message, nil
	}
	data, err := json.Marshal(cards)
	if err != nil {
		return "", err
	}
	return message + "\n" + inlineOpen + string(data) + inlineClose, nil
}

// DecodeInline splits a stored bot message back into text and cards.
// Messages without a block come back unchanged.
func DecodeInline(stored string) (string, []core.ProductCard) {
	start := strings.LastIndex(stored, inlineOpen)
	if start < 0 || !strings.HasSuffix(stored, inlineClose) {
		return stored, nil
	}
	payload := stored[start+len(inlineOpen) : len(stored)-len(inlineClose)]
	var cards []core.ProductCard
	if err := json.Unmarshal([]byte(payload), &cards); err != nil {
		return stored, nil
	}
	return strings.TrimSuffix(stored[:start], "\n"), cards
}
