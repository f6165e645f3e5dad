package importer

import "strings"

// ComposeParentBody returns the parent issue body extended with a task-list
// line per child, in plan order. GitHub renders "- [ ] <url>" lines as
// tracked tasks, so the parent shows live checkboxes for its sub-issues.
// With no refs the body comes back unchanged.
func ComposeParentBody(body string, refs []string) string {
	if len(refs) == 0 {
		return body
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n")
	for _, ref := range refs {
		b.WriteString("- [ ] ")
		b.WriteString(ref)
		b.WriteString("\n")
	}
	return b.String()
}
