package board

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bikinibottom/spongeplay/internal/auth"
	"github.com/bikinibottom/spongeplay/internal/storage"
)

const (
	EventAnnouncementCreated = "announcement.created"
	EventAnnouncementDeleted = "announcement.deleted"
	EventCommentCreated      = "comment.created"
	EventCommentDeleted      = "comment.deleted"

	DefaultAuthor = "管理员"
)

var (
	ErrForbidden    = errors.New("admin session required")
	ErrEmptyTitle   = errors.New("title is required")
	ErrEmptyContent = errors.New("content is required")
)

// Event describes a change on the board.
type Event struct {
	Name      string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Notifier receives board events. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type Stats struct {
	Announcements int `json:"announcements"`
	Comments      int `json:"comments"`
	Likes         int `json:"likes"`
}

// Board is the announcement and comment service. Mutations are serialized
// within the process and guarded by document versions across processes.
type Board struct {
	announcements *Collection[Announcement]
	comments      *Collection[Comment]
	notifier      Notifier
	now           func() time.Time

	mu sync.Mutex
	wg sync.WaitGroup
}

func New(backend storage.Backend, notifier Notifier) *Board {
	b := &Board{notifier: notifier, now: time.Now}
	b.announcements = &Collection[Announcement]{
		Name:    AnnouncementsFile,
		Backend: backend,
		Default: func() []Announcement { return SeedAnnouncements(b.now()) },
	}
	b.comments = &Collection[Comment]{
		Name:    CommentsFile,
		Backend: backend,
	}
	return b
}

// Announcements returns the list newest first. On a load error the seed list
// is returned together with the error.
func (b *Board) Announcements(ctx context.Context) ([]Announcement, error) {
	list, _, err := b.announcements.Load(ctx)
	return list, err
}

// Comments returns the list newest first. On a load error an empty list is
// returned together with the error.
func (b *Board) Comments(ctx context.Context) ([]Comment, error) {
	list, _, err := b.comments.Load(ctx)
	return list, err
}

func (b *Board) PostAnnouncement(ctx context.Context, s auth.Session, a Announcement) (Announcement, error) {
	if !s.IsAdmin {
		return Announcement{}, ErrForbidden
	}
	a.Title = strings.TrimSpace(a.Title)
	a.Content = strings.TrimSpace(a.Content)
	a.Author = strings.TrimSpace(a.Author)
	if a.Title == "" {
		return Announcement{}, ErrEmptyTitle
	}
	if a.Content == "" {
		return Announcement{}, ErrEmptyContent
	}
	if a.Author == "" {
		a.Author = DefaultAuthor
	}
	if strings.TrimSpace(a.Date) == "" {
		a.Date = b.now().Format(DateLayout)
	}

	b.mu.Lock()
	_, err := b.announcements.Update(ctx, func(list []Announcement) ([]Announcement, error) {
		return InsertFront(list, a), nil
	})
	b.mu.Unlock()
	if err != nil {
		return Announcement{}, err
	}

	slog.Info("board: announcement published", "title", a.Title)
	b.emit(EventAnnouncementCreated, map[string]any{"title": a.Title, "author": a.Author, "date": a.Date})
	return a, nil
}

func (b *Board) DeleteAnnouncement(ctx context.Context, s auth.Session, index int) (Announcement, error) {
	if !s.IsAdmin {
		return Announcement{}, ErrForbidden
	}

	var removed Announcement
	b.mu.Lock()
	_, err := b.announcements.Update(ctx, func(list []Announcement) ([]Announcement, error) {
		next, err := RemoveAt(list, index)
		if err != nil {
			return nil, err
		}
		removed = list[index]
		return next, nil
	})
	b.mu.Unlock()
	if err != nil {
		return Announcement{}, err
	}

	slog.Info("board: announcement deleted", "index", index, "title", removed.Title)
	b.emit(EventAnnouncementDeleted, map[string]any{"index": index, "title": removed.Title})
	return removed, nil
}

// PostComment stores a new comment at the front. Likes always start at zero
// and the date is stamped by the server.
func (b *Board) PostComment(ctx context.Context, c Comment) (Comment, error) {
	c.Content = strings.TrimSpace(c.Content)
	c.Username = strings.TrimSpace(c.Username)
	if c.Content == "" {
		return Comment{}, ErrEmptyContent
	}
	if c.Username == "" {
		c.Username = DefaultUsername
	}
	c.Likes = 0
	c.Date = b.now().Format(DateLayout)

	b.mu.Lock()
	_, err := b.comments.Update(ctx, func(list []Comment) ([]Comment, error) {
		return InsertFront(list, c), nil
	})
	b.mu.Unlock()
	if err != nil {
		return Comment{}, err
	}

	b.emit(EventCommentCreated, map[string]any{"username": c.Username, "content": c.Content, "date": c.Date})
	return c, nil
}

// LikeComment increments the like count of the comment at index. Anyone may
// like, any number of times.
func (b *Board) LikeComment(ctx context.Context, index int) (Comment, error) {
	var liked Comment
	b.mu.Lock()
	_, err := b.comments.Update(ctx, func(list []Comment) ([]Comment, error) {
		if index < 0 || index >= len(list) {
			return nil, ErrIndexOutOfRange
		}
		list[index].Likes++
		liked = list[index]
		return list, nil
	})
	b.mu.Unlock()
	if err != nil {
		return Comment{}, err
	}
	return liked, nil
}

func (b *Board) DeleteComment(ctx context.Context, s auth.Session, index int) (Comment, error) {
	if !s.IsAdmin {
		return Comment{}, ErrForbidden
	}

	var removed Comment
	b.mu.Lock()
	_, err := b.comments.Update(ctx, func(list []Comment) ([]Comment, error) {
		next, err := RemoveAt(list, index)
		if err != nil {
			return nil, err
		}
		removed = list[index]
		return next, nil
	})
	b.mu.Unlock()
	if err != nil {
		return Comment{}, err
	}

	slog.Info("board: comment deleted", "index", index, "username", removed.Username)
	b.emit(EventCommentDeleted, map[string]any{"index": index, "username": removed.Username})
	return removed, nil
}

// Stats counts both collections. The first load error is returned alongside
// counts taken from whatever could be loaded.
func (b *Board) Stats(ctx context.Context) (Stats, error) {
	announcements, aErr := b.Announcements(ctx)
	comments, cErr := b.Comments(ctx)

	st := Stats{Announcements: len(announcements), Comments: len(comments)}
	for _, c := range comments {
		st.Likes += c.Likes
	}
	return st, errors.Join(aErr, cErr)
}

// Wait blocks until pending event deliveries finish.
func (b *Board) Wait() {
	b.wg.Wait()
}

func (b *Board) emit(name string, data map[string]any) {
	if b.notifier == nil {
		return
	}
	event := Event{Name: name, Timestamp: b.now().UTC(), Data: data}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := b.notifier.Notify(ctx, event); err != nil {
			slog.Error("board: event delivery failed", "event", name, "error", err)
		}
	}()
}
