package i18n

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// Translator retrieves localized messages for rule codes.
// data provides optional values to embed in the message; a "{key}"
// placeholder is replaced with data["key"].
type Translator interface {
	Message(code string, data map[string]string) string
}

var dictionaries = map[string]map[string]string{
	"en": {
		"required":      "is required",
		"too_short":     "must be at least {min} characters",
		"too_long":      "must be at most {max} characters",
		"too_small":     "must be at least {min}",
		"too_big":       "must be at most {max}",
		"pattern":       "has an invalid format",
		"invalid_email": "must be a valid email address",
		"invalid_enum":  "must be one of {values}",
		"mismatch":      "{a} and {b} must match",
		"at_least_one":  "at least one of {keys} is required",
		"taken":         "is already taken",
	},
	"ja": {
		"required":      "必須項目です",
		"too_short":     "{min}文字以上で入力してください",
		"too_long":      "{max}文字以内で入力してください",
		"too_small":     "{min}以上の値を入力してください",
		"too_big":       "{max}以下の値を入力してください",
		"pattern":       "形式が正しくありません",
		"invalid_email": "有効なメールアドレスを入力してください",
		"invalid_enum":  "{values}のいずれかを指定してください",
		"mismatch":      "{a}と{b}が一致しません",
		"at_least_one":  "{keys}のいずれかは必須です",
		"taken":         "既に使用されています",
	},
}

var supported = language.NewMatcher([]language.Tag{language.English, language.Japanese})

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

var (
	mu                           = sync.RWMutex{}
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// Match returns the built-in language ("en" or "ja") closest to the BCP 47
// tag, falling back to "en".
func Match(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return "en"
	}
	_, idx, conf := supported.Match(t)
	if conf == language.No || idx != 1 {
		return "en"
	}
	return "ja"
}

// SetLanguage switches the built-in Translator language. Tags such as
// "ja-JP" are matched to the closest supported language.
func SetLanguage(tag string) {
	mu.Lock()
	currentTranslator = dictTranslator{lang: Match(tag)}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	mu.Lock()
	defer mu.Unlock()
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
