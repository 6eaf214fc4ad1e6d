package exercise

import (
	"sort"
	"time"

	"github.com/trezcool/darasa/core"
)

type Exercise struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FolderID int    `json:"folder_id"`
}

type Comment struct {
	ID           int       `json:"id"`
	SubmissionID int       `json:"submission_id"`
	AuthorID     int       `json:"author_id"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// Submission is loaded eagerly with its comments to avoid N sequential
// fetches when listing.
type Submission struct {
	ID               int       `json:"id"`
	ExerciseID       int       `json:"exercise_id"`
	AuthorID         int       `json:"author_id"`
	AuthorName       string    `json:"author_name"`
	IsTestSubmission bool      `json:"is_test_submission"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	Comments         []Comment `json:"comments"`
}

// Counts aggregates a submission list in a single pass.
type Counts struct {
	Testing    int `json:"testing"`
	NonTesting int `json:"non_testing"`
}

func CountSubmissions(subs []Submission) Counts {
	var c Counts
	for _, s := range subs {
		if s.IsTestSubmission {
			c.Testing++
		} else {
			c.NonTesting++
		}
	}
	return c
}

// SortSubmissionsByCreatedDesc applies the default listing order:
// strictly newest first, ties broken by descending id for a stable order.
func SortSubmissionsByCreatedDesc(subs []Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID > subs[j].ID
		}
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
}

// SortSubmissions re-sorts an already-loaded list in place; no re-query.
func SortSubmissions(subs []Submission, orderings []core.Ordering) {
	if len(orderings) == 0 {
		return
	}
	ord := orderings[0]
	sort.SliceStable(subs, func(i, j int) bool {
		a, b := subs[i], subs[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "author":
			return a.AuthorName < b.AuthorName
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

// Resource is a stored binary served by the resource endpoint.
type Resource struct {
	ID          int    `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	StorageKey  string `json:"-"`
	FolderID    int    `json:"folder_id"`
}
