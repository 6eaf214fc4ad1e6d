package exercise

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
)

func TestSortAndCountSubmissions(t *testing.T) {
	now := time.Now().UTC()
	subs := []Submission{
		{ID: 1, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 2, CreatedAt: now, IsTestSubmission: true},
		{ID: 3, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: 4, CreatedAt: now.Add(-1 * time.Hour), IsTestSubmission: true},
	}

	SortSubmissionsByCreatedDesc(subs)

	for i := 1; i < len(subs); i++ {
		if subs[i].CreatedAt.After(subs[i-1].CreatedAt) {
			t.Errorf("submissions not sorted by descending creation time at index %d", i)
		}
	}
	assert.Equal(t, []int{2, 4, 3, 1}, []int{subs[0].ID, subs[1].ID, subs[2].ID, subs[3].ID})

	counts := CountSubmissions(subs)
	assert.Equal(t, 2, counts.Testing)
	assert.Equal(t, 2, counts.NonTesting)
	if counts.Testing+counts.NonTesting != len(subs) {
		t.Errorf("counts do not sum to list length: %d + %d != %d", counts.Testing, counts.NonTesting, len(subs))
	}
}

func TestSortSubmissionsByAuthor(t *testing.T) {
	subs := []Submission{
		{ID: 1, AuthorName: "charlie"},
		{ID: 2, AuthorName: "alice"},
		{ID: 3, AuthorName: "bob"},
	}
	SortSubmissions(subs, []core.Ordering{{Field: "author", Ascending: true}})
	assert.Equal(t, "alice", subs[0].AuthorName)
	assert.Equal(t, "charlie", subs[2].AuthorName)

	SortSubmissions(subs, []core.Ordering{{Field: "author"}})
	assert.Equal(t, "charlie", subs[0].AuthorName)
}

func TestEncodeDispositionFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "report.pdf", want: "report.pdf"},
		{name: "hazards", in: `a:b\c/d?e&f.txt`, want: "a-b-c-d-e-f.txt"},
		{name: "spaces", in: "my report.pdf", want: "my%20report.pdf"},
		{name: "plus", in: "c++.pdf", want: "c%2B%2B.pdf"},
		{name: "non-ascii", in: "übung.pdf", want: "%C3%BCbung.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeDispositionFilename(tt.in)
			if got != tt.want {
				t.Errorf("EncodeDispositionFilename() = %q; want %q", got, tt.want)
			}
			for _, raw := range []string{":", "\\", "/", "?", "&", "+", " "} {
				if strings.Contains(got, raw) {
					t.Errorf("encoded filename %q contains raw %q", got, raw)
				}
			}
		})
	}
}
