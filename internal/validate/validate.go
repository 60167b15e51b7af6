package validate

import (
	"fmt"
	"unicode/utf8"
)

// Text field length limits, in characters. Shared by the API and /api/limits.
const (
	MaxUsernameLength            = 50
	MaxCommentLength             = 2000
	MaxAnnouncementTitleLength   = 200
	MaxAnnouncementContentLength = 10000
	MaxAuthorLength              = 50
	MaxVideoURLLength            = 2048
)

func checkLen(value string, max int, field string) string {
	if utf8.RuneCountInString(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Username(s string) string { return checkLen(s, MaxUsernameLength, "username") }
func Comment(s string) string  { return checkLen(s, MaxCommentLength, "comment") }
func AnnouncementTitle(s string) string {
	return checkLen(s, MaxAnnouncementTitleLength, "title")
}
func AnnouncementContent(s string) string {
	return checkLen(s, MaxAnnouncementContentLength, "content")
}
func Author(s string) string   { return checkLen(s, MaxAuthorLength, "author") }
func VideoURL(s string) string { return checkLen(s, MaxVideoURLLength, "url") }

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"username":            MaxUsernameLength,
		"comment":             MaxCommentLength,
		"announcementTitle":   MaxAnnouncementTitleLength,
		"announcementContent": MaxAnnouncementContentLength,
		"author":              MaxAuthorLength,
		"videoURL":            MaxVideoURLLength,
	}
}
