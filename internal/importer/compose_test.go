package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeParentBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		refs []string
		want string
	}{
		{
			name: "no refs leaves body unchanged",
			body: "Build the gizmo app.",
			refs: nil,
			want: "Build the gizmo app.",
		},
		{
			name: "single ref",
			body: "Build the gizmo app.",
			refs: []string{"https://github.com/acme/tools/issues/2"},
			want: "Build the gizmo app.\n\n- [ ] https://github.com/acme/tools/issues/2\n",
		},
		{
			name: "refs keep their order",
			body: "Build the gizmo app.",
			refs: []string{
				"https://github.com/acme/tools/issues/2",
				"https://github.com/acme/tools/issues/3",
			},
			want: "Build the gizmo app.\n\n" +
				"- [ ] https://github.com/acme/tools/issues/2\n" +
				"- [ ] https://github.com/acme/tools/issues/3\n",
		},
		{
			name: "multiline body",
			body: "Goal:\n- ship it",
			refs: []string{"https://github.com/acme/tools/issues/9"},
			want: "Goal:\n- ship it\n\n- [ ] https://github.com/acme/tools/issues/9\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeParentBody(tt.body, tt.refs))
		})
	}
}

func TestComposeParentBodyIsPure(t *testing.T) {
	refs := []string{"https://github.com/acme/tools/issues/2"}
	first := ComposeParentBody("Body.", refs)
	second := ComposeParentBody("Body.", refs)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"https://github.com/acme/tools/issues/2"}, refs)
}
