// Package todo defines the Todo entity shared by the service, its
// repositories, and the HTTP adapters.
package todo

// Todo is a single task. The ID is assigned by the repository on insert;
// a zero ID marks a todo that has not been persisted yet.
type Todo struct {
	ID        int64
	Title     string
	Completed bool
}

// IsNew reports whether the todo has not been assigned an ID.
func (t *Todo) IsNew() bool {
	return t.ID == 0
}
