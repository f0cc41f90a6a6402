package realtime

import "strings"

// Named realtime streams used across the platform.
const (
	StreamNotifications = "notifications"
	StreamSession       = "session"
	StreamChat          = "chat"
)

// ClassKind names one class scoped change stream.
type ClassKind string

const (
	KindAnnouncements ClassKind = "announcements"
	KindAssignments   ClassKind = "assignments"
	KindPosts         ClassKind = "posts"
	KindEnrollments   ClassKind = "enrollments"
	KindDocuments     ClassKind = "documents"
	KindMessages      ClassKind = "messages"
)

// ClassKinds lists every class scoped stream kind.
var ClassKinds = []ClassKind{
	KindAnnouncements,
	KindAssignments,
	KindPosts,
	KindEnrollments,
	KindDocuments,
	KindMessages,
}

const classStreamPrefix = "class."

// ClassStream returns the stream name carrying kind changes for a class, e.g. class.<id>.posts.
func ClassStream(classID string, kind ClassKind) string {
	return normalizeStream(classStreamPrefix + strings.TrimSpace(classID) + "." + string(kind))
}

// ParseClassStream splits a class stream name into its class id and kind.
func ParseClassStream(stream string) (classID string, kind ClassKind, ok bool) {
	stream = normalizeStream(stream)
	if !strings.HasPrefix(stream, classStreamPrefix) {
		return "", "", false
	}

	rest := strings.TrimPrefix(stream, classStreamPrefix)
	idx := strings.LastIndex(rest, ".")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}

	classID, kind = rest[:idx], ClassKind(rest[idx+1:])
	for _, known := range ClassKinds {
		if kind == known {
			return classID, kind, true
		}
	}
	return "", "", false
}
