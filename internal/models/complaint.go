package models

// ComplaintStatus is the workflow state of a complaint.
type ComplaintStatus string

const (
	StatusUnread     ComplaintStatus = "Unread"
	StatusRead       ComplaintStatus = "Read"
	StatusInProgress ComplaintStatus = "In progress"
	StatusCompleted  ComplaintStatus = "Completed"
)

// Anonymity scopes of a complaint.
const (
	ScopePrivate = "private"
	ScopePublic  = "public"
)

// Complaint is a single entry of the complaint history.
type Complaint struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Status         ComplaintStatus `json:"status"`
	Priority       string          `json:"priority"`
	IsAnonymous    bool            `json:"is_anonymous,omitempty"`
	AnonymityScope string          `json:"anonymity_scope,omitempty"`
	EmployeeName   string          `json:"employee_name,omitempty"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
	Location       string          `json:"location,omitempty"`
	Flagged        bool            `json:"flagged,omitempty"`
}

// ComplaintRequest is the body of a create-complaint call.
type ComplaintRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Location       string `json:"location,omitempty"`
	Priority       string `json:"priority,omitempty"`
	Category       string `json:"category,omitempty"`
	AnonymityScope string `json:"anonymity_scope,omitempty"`
	IsAnonymous    bool   `json:"is_anonymous"`
}

// ComplaintReceipt is returned after a complaint was filed.
type ComplaintReceipt struct {
	ID             int64  `json:"id"`
	Category       string `json:"category"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	Timestamp      string `json:"timestamp"`
}

// DashboardSummary counts complaints per status.
type DashboardSummary struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Unread     int `json:"unread"`
	Read       int `json:"read"`
	InProgress int `json:"in_progress"`
}

// Pending is the number of complaints not yet completed.
func (s DashboardSummary) Pending() int {
	return s.Read + s.Unread + s.InProgress
}

// Dashboard is the data of a dashboard response.
type Dashboard struct {
	Summary          DashboardSummary `json:"summary"`
	ComplaintHistory []Complaint      `json:"complaint_history"`
}

// Profile is the data of a profile response.
type Profile struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	TotalComplaints    int    `json:"total_complaints"`
	ResolvedComplaints int    `json:"resolved_complaints"`
}
