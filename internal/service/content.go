package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"microsocial/internal/apperror"
)

const (
	MaxContentLength = 280
	urlWeight        = 23
	maxMessageLength = 2000
	feedLimit        = 50
)

var (
	appUserIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)
	urlPattern       = regexp.MustCompile(`(?i)https?://\S+|www\.\S+`)
	tagPattern       = regexp.MustCompile(`[#@]\w+`)
)

func ValidAppUserID(id string) bool {
	return appUserIDPattern.MatchString(id)
}

// WeightedLength counts every link as 23 characters and ignores hashtags
// and mentions.
func WeightedLength(text string) int {
	urls := urlPattern.FindAllString(text, -1)
	rest := urlPattern.ReplaceAllString(text, "")
	rest = tagPattern.ReplaceAllString(rest, "")

	return utf8.RuneCountInString(strings.TrimSpace(rest)) + len(urls)*urlWeight
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "content cannot be empty")
	}
	if WeightedLength(content) > MaxContentLength {
		return "", apperror.ValidationFailed("content", "content exceeds 280 characters")
	}
	return content, nil
}
