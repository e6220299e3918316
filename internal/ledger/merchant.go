package ledger

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be but by for from has have he her hers him his i if in
		into is it its me my of on or our ours she so than that the their them they this to up was we were what
		when where who why will with you your yours`) {
		stopWords[w] = struct{}{}
	}
}

// MerchantKey reduces free text to a short canonical merchant key: the first
// two content words of the lowercased, letters-only text. Stop words and
// words of two letters or fewer are dropped. Returns "" when nothing remains.
func MerchantKey(text string) string {
	words := letterWords(text)
	out := make([]string, 0, 2)
	for _, w := range words {
		if _, stop := stopWords[w]; stop || len(w) <= 2 {
			continue
		}
		out = append(out, w)
		if len(out) == 2 {
			break
		}
	}
	return strings.Join(out, " ")
}

// letterWords lowercases s and splits it on anything that is not an ASCII
// letter. Digits and punctuation act as separators.
func letterWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
}

// normalizeLetters is letterWords joined by single spaces.
func normalizeLetters(s string) string {
	return strings.Join(letterWords(s), " ")
}

// Title upper-cases the first letter of each word, for merchant nicknames.
func Title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
