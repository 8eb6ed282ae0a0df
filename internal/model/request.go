package model

import "time"

// RequestStatus enum constants
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusApproved = "approved"
)

// RecordTypeATK tags every row written by this service in shared tabular stores.
const RecordTypeATK = "atk_request"

// DateLayout is the layout of every stage date and the submission date.
const DateLayout = "2006-01-02"

// Item is one line of a stationery request.
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

// Request is one supply request moving through pending -> verified -> approved.
// Stage fields are empty until the transition that owns them.
type Request struct {
	ID             string `gorm:"type:varchar(64);primaryKey" json:"id"`
	DocumentNumber string `gorm:"type:varchar(100);not null;index" json:"documentNumber"`
	RecordType     string `gorm:"type:varchar(30);not null;default:'atk_request'" json:"recordType"`
	Year           string `gorm:"type:varchar(10)" json:"year"`
	WorkUnit       string `gorm:"type:varchar(150)" json:"workUnit"`
	Location       string `gorm:"type:varchar(150)" json:"location"`
	SubmissionDate string `gorm:"type:varchar(10);index" json:"submissionDate"`

	RequesterName      string `gorm:"type:varchar(150);not null" json:"requesterName"`
	RequesterNIP       string `gorm:"type:varchar(50);not null" json:"requesterNIP"`
	RequesterSignature string `gorm:"type:text" json:"requesterSignature"`

	Items  []Item `gorm:"type:jsonb;serializer:json" json:"items"`
	Status string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	VerifierName      string `gorm:"type:varchar(150)" json:"verifierName"`
	VerifierNIP       string `gorm:"type:varchar(50)" json:"verifierNIP"`
	VerifierDate      string `gorm:"type:varchar(10)" json:"verifierDate"`
	VerifierSignature string `gorm:"type:text" json:"verifierSignature"`

	SupervisorName      string `gorm:"type:varchar(150)" json:"supervisorName"`
	SupervisorNIP       string `gorm:"type:varchar(50)" json:"supervisorNIP"`
	SupervisorDate      string `gorm:"type:varchar(10)" json:"supervisorDate"`
	SupervisorSignature string `gorm:"type:text" json:"supervisorSignature"`

	GoodsReleaseName      string `gorm:"type:varchar(150)" json:"goodsReleaseName"`
	GoodsReleaseNIP       string `gorm:"type:varchar(50)" json:"goodsReleaseNIP"`
	GoodsReleaseDate      string `gorm:"type:varchar(10)" json:"goodsReleaseDate"`
	GoodsReleaseSignature string `gorm:"type:text" json:"goodsReleaseSignature"`

	// Present in the remote sheet layout; nothing in the workflow sets them yet.
	RejectionReason string `gorm:"type:text" json:"rejectionReason"`
	RejectedBy      string `gorm:"type:varchar(150)" json:"rejectedBy"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName pins the table name for the postgres adapter.
func (Request) TableName() string {
	return "atk_requests"
}

// Clone returns a deep copy so callers can mutate without touching a snapshot.
func (r Request) Clone() Request {
	c := r
	if r.Items != nil {
		c.Items = make([]Item, len(r.Items))
		copy(c.Items, r.Items)
	}
	return c
}

// VerificationRecorded reports whether the verifier stage is fully populated.
func (r *Request) VerificationRecorded() bool {
	return r.VerifierName != "" && r.VerifierNIP != "" && r.VerifierDate != "" && r.VerifierSignature != ""
}

// ApprovalRecorded reports whether the supervisor and goods-release stages are fully populated.
func (r *Request) ApprovalRecorded() bool {
	return r.SupervisorName != "" && r.SupervisorNIP != "" && r.SupervisorDate != "" && r.SupervisorSignature != "" &&
		r.GoodsReleaseName != "" && r.GoodsReleaseNIP != "" && r.GoodsReleaseDate != "" && r.GoodsReleaseSignature != ""
}

// CloneRequests deep-copies a record set.
func CloneRequests(in []Request) []Request {
	out := make([]Request, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
