package content

import "strings"

// AccessRight is a bit-flag set of rights a user holds on a Folder.
type AccessRight uint8

const (
	Read AccessRight = 1 << iota
	ExtendedRead
	Write
	Grade
	Manage

	None AccessRight = 0
)

// Normalize enforces the right implications:
// Manage implies all others; Write, Grade and ExtendedRead imply Read.
func (r AccessRight) Normalize() AccessRight {
	if r.has(Manage) {
		return Read | ExtendedRead | Write | Grade | Manage
	}
	if r.has(Write) || r.has(Grade) || r.has(ExtendedRead) {
		r |= Read
	}
	return r
}

func (r AccessRight) has(flag AccessRight) bool { return r&flag != 0 }

func (r AccessRight) CanRead() bool         { return r.Normalize().has(Read) }
func (r AccessRight) CanExtendedRead() bool { return r.Normalize().has(ExtendedRead) }
func (r AccessRight) CanWrite() bool        { return r.Normalize().has(Write) }
func (r AccessRight) CanGrade() bool        { return r.Normalize().has(Grade) }
func (r AccessRight) CanManage() bool       { return r.has(Manage) }

func (r AccessRight) String() string {
	r = r.Normalize()
	if r == None {
		return "none"
	}
	var names []string
	for _, f := range []struct {
		flag AccessRight
		name string
	}{
		{Read, "read"},
		{ExtendedRead, "extended_read"},
		{Write, "write"},
		{Grade, "grade"},
		{Manage, "manage"},
	} {
		if r.has(f.flag) {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "|")
}

// RightFlags is the wire representation of an AccessRight.
type RightFlags struct {
	Read         bool `json:"read"`
	ExtendedRead bool `json:"extended_read"`
	Write        bool `json:"write"`
	Grade        bool `json:"grade"`
	Manage       bool `json:"manage"`
}

func (f RightFlags) Right() AccessRight {
	var r AccessRight
	if f.Read {
		r |= Read
	}
	if f.ExtendedRead {
		r |= ExtendedRead
	}
	if f.Write {
		r |= Write
	}
	if f.Grade {
		r |= Grade
	}
	if f.Manage {
		r |= Manage
	}
	return r.Normalize()
}

func Flags(r AccessRight) RightFlags {
	r = r.Normalize()
	return RightFlags{
		Read:         r.has(Read),
		ExtendedRead: r.has(ExtendedRead),
		Write:        r.has(Write),
		Grade:        r.has(Grade),
		Manage:       r.has(Manage),
	}
}

// Folder is a node of the content tree. The tree root and the presentation
// root below it carry flags; every other folder has a parent. Folders directly
// below the presentation root are personal folders and must have an owner.
type Folder struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ParentID *int   `json:"parent_id,omitempty"`
	OwnerID  *int   `json:"owner_id,omitempty"`

	IsRoot bool `json:"is_root,omitempty"`
	// IsPresentationRoot marks the content root directly under the tree root;
	// its children are the per-user personal folders.
	IsPresentationRoot bool `json:"is_presentation_root,omitempty"`
}

// UserRight is one stored (folder, user, right) entry.
type UserRight struct {
	FolderID int         `json:"folder_id"`
	UserID   int         `json:"user_id"`
	Right    AccessRight `json:"-"`
}

// UserRightsData is the immutable snapshot shown in the rights dialog:
// the subject's own entry on the folder plus the right inherited from
// ancestor folders. Edits are buffered separately and applied on save.
type UserRightsData struct {
	UserID         int        `json:"user_id"`
	Username       string     `json:"username"`
	OwnRight       RightFlags `json:"own_right"`
	InheritedRight RightFlags `json:"inherited_right"`
}

// RightsEdit is one pending edit buffered in the rights dialog.
type RightsEdit struct {
	UserID int        `json:"user_id"`
	Right  RightFlags `json:"right"`
}
