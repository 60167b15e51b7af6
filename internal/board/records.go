// Package board holds the announcement board and the public comment board.
package board

import "time"

// DateLayout is how the board stamps dates. Stored dates are free-form;
// anything else found in a file is kept as is.
const DateLayout = "2006-01-02 15:04:05"

const (
	AnnouncementsFile = "announcements.json"
	CommentsFile      = "comments.json"

	DefaultUsername = "匿名用户"
)

type Announcement struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
	Author  string `json:"author"`
}

type Comment struct {
	Username string `json:"username"`
	Content  string `json:"content"`
	Date     string `json:"date"`
	Likes    int    `json:"likes"`
	Region   string `json:"region,omitempty"`
}

// SeedAnnouncements is the announcement list used before anything has been saved.
func SeedAnnouncements(now time.Time) []Announcement {
	return []Announcement{{
		Title:   "欢迎来到比奇堡！",
		Content: "粘贴视频链接，选择一个解析器，就可以开始看啦！有问题就在留言板告诉我们。",
		Date:    now.Format(DateLayout),
		Author:  "海绵宝宝",
	}}
}
