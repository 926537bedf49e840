package model

// Label is a tag attached to a task on the service side. Labels are display
// only in this client; they are never parsed from input or edited.
type Label struct {
	ID    int64
	Title string
}
