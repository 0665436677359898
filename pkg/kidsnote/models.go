package kidsnote

import "time"

// Token is the OAuth token response. Expiry is computed locally from ExpiresIn.
type Token struct {
	TokenType    string    `json:"token_type"`
	AccessToken  string    `json:"access_token"`
	Scope        string    `json:"scope"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"-"`
}

// MeInfo is the account owner and their children
type MeInfo struct {
	User     User    `json:"user"`
	Children []Child `json:"children"`
}

// User is the signed-in guardian
type User struct {
	ID          uint64 `json:"id"`
	Username    string `json:"username"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	DateJoined  string `json:"date_joined"`
}

// Child is one child linked to the account
type Child struct {
	ID          uint64       `json:"id"`
	Created     string       `json:"created"`
	Name        string       `json:"name"`
	DateBirth   string       `json:"date_birth"`
	Gender      string       `json:"gender"`
	Enrollments []Enrollment `json:"enrollment"`
}

// Enrollment links a child to a center and class
type Enrollment struct {
	ID            uint64 `json:"id"`
	ChildID       uint64 `json:"child_id"`
	ChildName     string `json:"child_name"`
	CenterID      uint64 `json:"center_id"`
	CenterName    string `json:"center_name"`
	BelongToClass uint64 `json:"belong_to_class"`
	ClassName     string `json:"class_name"`
	IsApproved    bool   `json:"is_approved"`
}

// ReportPage is one page of a child's report feed
type ReportPage struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []ReportEntry `json:"results"`
}

// ReportEntry is a single report as returned by the API
type ReportEntry struct {
	ID             uint64          `json:"id"`
	Created        time.Time       `json:"created"`
	Modified       string          `json:"modified"`
	DateWritten    string          `json:"date_written"`
	Author         ReportAuthor    `json:"author"`
	AuthorName     string          `json:"author_name"`
	Center         *uint64         `json:"center"`
	Class          uint64          `json:"cls"`
	ClassName      string          `json:"class_name"`
	Child          uint64          `json:"child"`
	ChildName      string          `json:"child_name"`
	Content        string          `json:"content"`
	Weather        string          `json:"weather"`
	NumComments    int             `json:"num_comments"`
	AttachedImages []AttachedImage `json:"attached_images"`
}

// ReportAuthor is the staff member or parent who wrote a report
type ReportAuthor struct {
	ID       uint64 `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// AttachedImage is an image resource. Only Original is downloaded.
type AttachedImage struct {
	ID               uint64 `json:"id"`
	AccessKey        string `json:"access_key"`
	OriginalFileName string `json:"original_file_name"`
	FileSize         int64  `json:"file_size"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Original         string `json:"original"`
	Large            string `json:"large"`
	Small            string `json:"small"`
}
