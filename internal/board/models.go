package board

// Card is a single task on the board. Timestamps are Unix milliseconds.
type Card struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	ColumnID  string `json:"columnId"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Column is one of the fixed buckets a card can belong to.
type Column struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const (
	ColumnTodo       = "todo"
	ColumnInProgress = "inprogress"
	ColumnDone       = "done"
)

// MaxContentLength is the maximum card content length in characters,
// counted after trimming.
const MaxContentLength = 500

var columns = []Column{
	{ID: ColumnTodo, Name: "To Do"},
	{ID: ColumnInProgress, Name: "In Progress"},
	{ID: ColumnDone, Name: "Done"},
}

// Columns returns the board columns in display order.
func Columns() []Column {
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}

func IsValidColumnID(id string) bool {
	for _, c := range columns {
		if c.ID == id {
			return true
		}
	}
	return false
}
