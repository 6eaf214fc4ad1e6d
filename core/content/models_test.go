package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessRightNormalize(t *testing.T) {
	tests := []struct {
		name  string
		right AccessRight
		want  AccessRight
	}{
		{name: "none stays none", right: None, want: None},
		{name: "read alone", right: Read, want: Read},
		{name: "write implies read", right: Write, want: Write | Read},
		{name: "grade implies read", right: Grade, want: Grade | Read},
		{name: "extended read implies read", right: ExtendedRead, want: ExtendedRead | Read},
		{name: "manage implies everything", right: Manage, want: Read | ExtendedRead | Write | Grade | Manage},
		{name: "combined flags keep their implications", right: Write | Grade, want: Write | Grade | Read},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.right.Normalize())
		})
	}
}

func TestAccessRightChecks(t *testing.T) {
	assert.True(t, Write.CanRead())
	assert.True(t, Grade.CanRead())
	assert.True(t, ExtendedRead.CanRead())
	assert.False(t, Read.CanWrite())
	assert.False(t, Grade.CanManage())

	m := Manage
	assert.True(t, m.CanRead())
	assert.True(t, m.CanExtendedRead())
	assert.True(t, m.CanWrite())
	assert.True(t, m.CanGrade())
	assert.True(t, m.CanManage())
}

func TestAccessRightString(t *testing.T) {
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "read", Read.String())
	assert.Equal(t, "read|write", Write.String())
	assert.Equal(t, "read|extended_read|write|grade|manage", Manage.String())
}

func TestRightFlagsRoundTrip(t *testing.T) {
	for _, r := range []AccessRight{None, Read, Write, Grade, ExtendedRead, Manage, Write | Grade} {
		assert.Equal(t, r.Normalize(), Flags(r).Right(), "right %v", r)
	}

	// flag combinations normalize on the way in
	f := RightFlags{Write: true}
	assert.Equal(t, (Write | Read), f.Right())
}
