package notifications

import (
	"fmt"
	"strconv"
	"strings"
)

// Key builds the identity of a notification: "<user>|<pkg>|<id>|<tag>".
func Key(userID int, pkg string, id int, tag string) string {
	var b strings.Builder
	b.Grow(len(pkg) + len(tag) + 16)
	b.WriteString(strconv.Itoa(userID))
	b.WriteByte('|')
	b.WriteString(pkg)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(id))
	b.WriteByte('|')
	b.WriteString(tag)
	return b.String()
}

// GroupKey builds the key shared by every member of a group.
func GroupKey(userID int, pkg, group string) string {
	return fmt.Sprintf("%d|%s|g:%s", userID, pkg, group)
}

// ParsedKey is the decomposed form of a notification key.
type ParsedKey struct {
	UserID  int
	Package string
	ID      int
	Tag     string
}

// ParseKey splits a key produced by Key. Tags may contain '|'.
func ParseKey(key string) (ParsedKey, bool) {
	parts := strings.SplitN(key, "|", 4)
	if len(parts) != 4 || parts[1] == "" {
		return ParsedKey{}, false
	}
	user, err := strconv.Atoi(parts[0])
	if err != nil {
		return ParsedKey{}, false
	}
	id, err := strconv.Atoi(parts[2])
	if err != nil {
		return ParsedKey{}, false
	}
	return ParsedKey{UserID: user, Package: parts[1], ID: id, Tag: parts[3]}, true
}
