package content_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/content"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

type contentFixture struct {
	repo    *inmemdb.ContentRepository
	usrRepo *inmemdb.UserRepository
	usrSvc  user.Service
	svc     *content.Service

	owner user.User
}

func newContentFixture(t *testing.T) *contentFixture {
	t.Helper()

	conf := &core.Config{
		TestMode:        true,
		SecretKey:       "secret",
		FrontendBaseURL: "http://localhost:8080",
	}
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	usrRepo := inmemdb.NewUserRepository()
	repo := inmemdb.NewContentRepository()

	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf), conf, logger)

	now := time.Now().UTC()
	owner, err := usrRepo.CreateUser(context.Background(), user.User{
		Name: "Owen Owner", Username: "owenowner", Email: "owen@test.cm",
		IsActive: true, Roles: []string{user.RoleTeacher},
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}

	return &contentFixture{
		repo:    repo,
		usrRepo: usrRepo,
		usrSvc:  usrSvc,
		svc:     content.NewService(repo, usrSvc, logger),
		owner:   owner,
	}
}

// seedChain lays out root > presentation root > personal > subfolders...
// and returns the deepest folder.
func (fix *contentFixture) seedChain(ownerID *int, names ...string) content.Folder {
	root := content.Folder{ID: 1, Name: "root", IsRoot: true}
	presRoot := content.Folder{ID: 2, Name: "presentations", ParentID: &root.ID, IsPresentationRoot: true}
	personal := content.Folder{ID: 3, Name: "personal", ParentID: &presRoot.ID, OwnerID: ownerID}
	fix.repo.AddFolder(root)
	fix.repo.AddFolder(presRoot)
	fix.repo.AddFolder(personal)

	last := personal
	for i, name := range names {
		parentID := last.ID
		f := content.Folder{ID: 4 + i, Name: name, ParentID: &parentID}
		fix.repo.AddFolder(f)
		last = f
	}
	return last
}

func TestBreadcrumb(t *testing.T) {
	t.Run("owner name stands in for the personal folder", func(t *testing.T) {
		fix := newContentFixture(t)
		leaf := fix.seedChain(&fix.owner.ID, "Week 1", "Exercises")

		crumb, err := fix.svc.Breadcrumb(context.Background(), leaf)
		assert.NoError(t, err)
		assert.Equal(t, "owenowner > Week 1 > Exercises", crumb)
	})

	t.Run("the roots contribute nothing", func(t *testing.T) {
		fix := newContentFixture(t)
		personal := fix.seedChain(&fix.owner.ID)

		crumb, err := fix.svc.Breadcrumb(context.Background(), personal)
		assert.NoError(t, err)
		assert.Equal(t, "owenowner", crumb)
	})

	t.Run("missing owner degrades to the folder name", func(t *testing.T) {
		fix := newContentFixture(t)
		leaf := fix.seedChain(nil, "Week 1")

		crumb, err := fix.svc.Breadcrumb(context.Background(), leaf)
		assert.Equal(t, content.ErrUnownedPersonalFolder, errors.Cause(err))
		assert.Equal(t, "personal > Week 1", crumb)
	})

	t.Run("dangling owner id degrades the same way", func(t *testing.T) {
		fix := newContentFixture(t)
		gone := 999
		leaf := fix.seedChain(&gone, "Week 1")

		crumb, err := fix.svc.Breadcrumb(context.Background(), leaf)
		assert.Equal(t, content.ErrUnownedPersonalFolder, errors.Cause(err))
		assert.Equal(t, "personal > Week 1", crumb)
	})
}

func TestMaximumRightForUser(t *testing.T) {
	fix := newContentFixture(t)
	leaf := fix.seedChain(&fix.owner.ID, "Week 1")
	ctx := context.Background()

	now := time.Now().UTC()
	mkUser := func(uname string, roles []string) user.User {
		usr, err := fix.usrRepo.CreateUser(ctx, user.User{
			Name: uname, Username: uname, Email: uname + "@test.cm",
			IsActive: true, Roles: roles, CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("creating %s: %v", uname, err)
		}
		return usr
	}

	student := mkUser("plainstudent", []string{user.RoleStudent})
	admin := mkUser("rightsadmin", []string{user.RoleAdminOwner})

	t.Run("no entries means no rights", func(t *testing.T) {
		r, err := fix.svc.MaximumRightForUser(ctx, student, leaf)
		assert.NoError(t, err)
		assert.Equal(t, content.None, r)
	})

	t.Run("owner holds manage on the whole subtree", func(t *testing.T) {
		r, err := fix.svc.MaximumRightForUser(ctx, fix.owner, leaf)
		assert.NoError(t, err)
		assert.True(t, r.CanManage())
	})

	t.Run("admins hold manage everywhere", func(t *testing.T) {
		r, err := fix.svc.MaximumRightForUser(ctx, admin, leaf)
		assert.NoError(t, err)
		assert.True(t, r.CanManage())
	})

	t.Run("entries along the chain accumulate", func(t *testing.T) {
		// Read on the personal folder, Grade on the leaf
		err := fix.repo.SetFolderRights(ctx, 3, []content.UserRight{
			{FolderID: 3, UserID: student.ID, Right: content.Read},
		})
		assert.NoError(t, err)
		err = fix.repo.SetFolderRights(ctx, leaf.ID, []content.UserRight{
			{FolderID: leaf.ID, UserID: student.ID, Right: content.Grade},
		})
		assert.NoError(t, err)

		r, err := fix.svc.MaximumRightForUser(ctx, student, leaf)
		assert.NoError(t, err)
		assert.True(t, r.CanRead())
		assert.True(t, r.CanGrade())
		assert.False(t, r.CanManage())
	})
}
