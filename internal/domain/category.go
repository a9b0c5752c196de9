package domain

import (
	"math/rand"
	"strings"
)

// Category is a consultation topic. A session is fixed to one category
// for its whole lifetime.
type Category string

const (
	CategoryLove        Category = "LOVE"
	CategoryWealth      Category = "WEALTH"
	CategoryCareer      Category = "CAREER"
	CategoryHealth      Category = "HEALTH"
	CategoryDream       Category = "DREAM"
	CategoryLuckyNumber Category = "LUCKY_NUMBER"
)

// categoryOrder fixes declaration order; it breaks scoring ties and
// drives the deterministic suggestion policy.
var categoryOrder = []Category{
	CategoryLove,
	CategoryWealth,
	CategoryCareer,
	CategoryHealth,
	CategoryDream,
	CategoryLuckyNumber,
}

// categoryKeywords maps each category to the utterance keywords that
// vote for it. Scoring counts keyword occurrences, not distinct hits.
var categoryKeywords = map[Category][]string{
	CategoryLove:        {"연애", "사랑", "짝사랑", "남자친구", "여자친구", "남친", "여친", "결혼", "재회", "소개팅"},
	CategoryWealth:      {"재물", "돈", "투자", "주식", "재테크", "부동산", "금전", "대출"},
	CategoryCareer:      {"직장", "취업", "이직", "사업", "승진", "면접", "창업", "퇴사"},
	CategoryHealth:      {"건강", "몸", "병원", "다이어트", "수술", "체력"},
	CategoryDream:       {"꿈", "해몽", "악몽", "태몽"},
	CategoryLuckyNumber: {"로또", "번호", "당첨", "복권", "행운의 숫자"},
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryKeywords[c]
	return ok
}

// Categories returns all categories in declaration order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ClassifyUtterance scores the utterance against the keyword table and
// returns the most likely category. Ties go to the first-declared
// category. Zero matches returns ok=false, which callers treat as
// "no drift detected".
func ClassifyUtterance(utterance string) (Category, bool) {
	best := Category("")
	bestScore := 0
	for _, cat := range categoryOrder {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			score += strings.Count(utterance, kw)
		}
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}
	if bestScore == 0 {
		return "", false
	}
	return best, true
}

// DetectDrift reports whether the utterance belongs to a different
// category than the session is fixed to. Unclassifiable input is
// treated as on-topic.
func DetectDrift(current Category, utterance string) (Category, bool) {
	detected, ok := ClassifyUtterance(utterance)
	if !ok || detected == current {
		return "", false
	}
	return detected, true
}

// SuggestionPolicy orders alternate-category suggestions for a drift
// redirect notice. Pluggable so tests can pin the order.
type SuggestionPolicy interface {
	SuggestCategories(current Category, limit int) []Category
}

// OrderedSuggestions suggests alternates in declaration order.
type OrderedSuggestions struct{}

func (OrderedSuggestions) SuggestCategories(current Category, limit int) []Category {
	return pickOthers(current, limit, func(n int) []int {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	})
}

// ShuffledSuggestions suggests alternates in pseudo-random order.
type ShuffledSuggestions struct {
	Rand *rand.Rand
}

func (p ShuffledSuggestions) SuggestCategories(current Category, limit int) []Category {
	shuffle := rand.Perm
	if p.Rand != nil {
		shuffle = p.Rand.Perm
	}
	return pickOthers(current, limit, shuffle)
}

func pickOthers(current Category, limit int, perm func(int) []int) []Category {
	others := make([]Category, 0, len(categoryOrder)-1)
	for _, cat := range categoryOrder {
		if cat != current {
			others = append(others, cat)
		}
	}
	if limit <= 0 || limit > len(others) {
		limit = len(others)
	}
	out := make([]Category, 0, limit)
	for _, i := range perm(len(others))[:limit] {
		out = append(out, others[i])
	}
	return out
}
