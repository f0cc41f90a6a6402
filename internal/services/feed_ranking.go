package services

import (
	"sort"
	"strings"
	"time"

	"github.com/charlesng35/campushub/internal/models"
)

// FeedKind identifies the record behind a feed item.
type FeedKind string

const (
	FeedAnnouncement FeedKind = "announcement"
	FeedAssignment   FeedKind = "assignment"
	FeedPost         FeedKind = "post"
)

// FeedTab selects which kinds a feed response contains.
type FeedTab string

const (
	TabAll           FeedTab = "all"
	TabAnnouncements FeedTab = "announcements"
	TabAssignments   FeedTab = "assignments"
	TabPosts         FeedTab = "posts"
)

// ParseFeedTab maps a query value to a tab. Empty input selects TabAll.
func ParseFeedTab(value string) (FeedTab, bool) {
	switch FeedTab(strings.ToLower(strings.TrimSpace(value))) {
	case "", TabAll:
		return TabAll, true
	case TabAnnouncements:
		return TabAnnouncements, true
	case TabAssignments:
		return TabAssignments, true
	case TabPosts:
		return TabPosts, true
	}
	return "", false
}

// FeedAuthor is the display identity attached to a feed item.
type FeedAuthor struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Avatar string      `json:"avatar"`
	Role   models.Role `json:"role"`
}

// FeedItem is one entry of the home feed.
type FeedItem struct {
	ID        string     `json:"id"`
	Kind      FeedKind   `json:"kind"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Author    FeedAuthor `json:"author"`
	Context   string     `json:"context,omitempty"`
	ClassID   string     `json:"class_id,omitempty"`
	ImageURLs []string   `json:"image_urls,omitempty"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	IsUrgent  bool       `json:"is_urgent,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// FeedSources holds the rows a feed is composed from. Rows are expected to be visible to the viewer.
type FeedSources struct {
	Announcements []models.Announcement
	Assignments   []models.Assignment
	Posts         []models.Post
}

// ComposeFeed ranks sources into a single feed: urgent announcements still inside the urgent
// window first, then the remaining announcements, then posts and assignments. Each group is
// ordered newest first.
func ComposeFeed(src FeedSources, now time.Time, urgentWindow time.Duration) []FeedItem {
	if urgentWindow <= 0 {
		urgentWindow = defaultUrgentWindow
	}

	var urgent, announcements, rest []FeedItem
	for _, a := range src.Announcements {
		item := announcementFeedItem(a)
		if a.IsUrgent && now.Sub(a.CreatedAt) < urgentWindow {
			urgent = append(urgent, item)
			continue
		}
		announcements = append(announcements, item)
	}
	for _, p := range src.Posts {
		rest = append(rest, postFeedItem(p))
	}
	for _, a := range src.Assignments {
		rest = append(rest, assignmentFeedItem(a))
	}

	out := make([]FeedItem, 0, len(urgent)+len(announcements)+len(rest))
	for _, bucket := range [][]FeedItem{urgent, announcements, rest} {
		sortNewestFirst(bucket)
		out = append(out, bucket...)
	}
	return out
}

// FilterFeed keeps the items belonging to tab, preserving rank order.
func FilterFeed(items []FeedItem, tab FeedTab) []FeedItem {
	var kind FeedKind
	switch tab {
	case TabAnnouncements:
		kind = FeedAnnouncement
	case TabAssignments:
		kind = FeedAssignment
	case TabPosts:
		kind = FeedPost
	default:
		return items
	}

	out := make([]FeedItem, 0, len(items))
	for _, item := range items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

func sortNewestFirst(items []FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func feedAuthor(user *models.User) FeedAuthor {
	if user == nil {
		return FeedAuthor{Name: "Unknown"}
	}
	return FeedAuthor{ID: user.ID, Name: user.DisplayName(), Avatar: user.AvatarURL, Role: user.Role}
}

func announcementFeedItem(a models.Announcement) FeedItem {
	item := FeedItem{
		ID:        a.ID,
		Kind:      FeedAnnouncement,
		Title:     a.Title,
		Content:   a.Body,
		Author:    feedAuthor(a.Author),
		ClassID:   derefString(a.ClassID),
		IsUrgent:  a.IsUrgent,
		CreatedAt: a.CreatedAt,
	}
	switch {
	case a.Class != nil:
		item.Context = a.Class.Name
	case a.Department != nil:
		item.Context = a.Department.Name
	}
	return item
}

func assignmentFeedItem(a models.Assignment) FeedItem {
	due := a.DueAt
	item := FeedItem{
		ID:        a.ID,
		Kind:      FeedAssignment,
		Title:     a.Title,
		Content:   a.Description,
		Author:    feedAuthor(a.Teacher),
		ClassID:   a.ClassID,
		DueAt:     &due,
		CreatedAt: a.CreatedAt,
	}
	if a.Class != nil {
		item.Context = a.Class.Name
	}
	return item
}

func postFeedItem(p models.Post) FeedItem {
	item := FeedItem{
		ID:        p.ID,
		Kind:      FeedPost,
		Content:   p.Content,
		Author:    feedAuthor(p.Author),
		ClassID:   derefString(p.ClassID),
		ImageURLs: models.DecodeStrings(p.ImageURLs),
		CreatedAt: p.CreatedAt,
	}
	if p.Class != nil {
		item.Context = p.Class.Name
	}
	return item
}
