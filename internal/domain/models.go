package domain

import "time"

// Enumerations
const (
	RoleAgent        UserRole = "agent"
	RoleTeamLead     UserRole = "team_lead"
	RoleSalesManager UserRole = "sales_manager"
	RoleAdmin        UserRole = "admin"

	StageNew        LifecycleStage = "new"
	StageInProgress LifecycleStage = "in_progress"
	StageClosed     LifecycleStage = "closed"
	StageDead       LifecycleStage = "dead"

	DealTypeBuyer          DealType = "buyer"
	DealTypeSeller         DealType = "seller"
	DealTypeBuyerAndSeller DealType = "buyer_and_seller"
	DealTypeRenter         DealType = "renter"
	DealTypeLandlord       DealType = "landlord"
)

type UserRole string
type LifecycleStage string
type DealType string

// ValidLifecycleStage reports whether s is one of the four fixed buckets.
func ValidLifecycleStage(s LifecycleStage) bool {
	switch s {
	case StageNew, StageInProgress, StageClosed, StageDead:
		return true
	}
	return false
}

// ValidDealType reports whether t is a known deal type.
func ValidDealType(t DealType) bool {
	switch t {
	case DealTypeBuyer, DealTypeSeller, DealTypeBuyerAndSeller, DealTypeRenter, DealTypeLandlord:
		return true
	}
	return false
}

type User struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	Role         UserRole
	TeamID       *int64
	IsGoogle     bool
	PasswordHash *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

type Team struct {
	ID        int64
	Name      string
	LeadID    *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PipelineStatus is a named, ordered, colored stage. Lifecycle maps custom
// stage names onto the fixed new/in_progress/closed/dead buckets.
type PipelineStatus struct {
	ID        int64
	Name      string
	Color     string
	SortOrder int
	Lifecycle LifecycleStage
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

type LeadSource struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Deal is a sales opportunity. Net commission is always derived from the
// price and rate fields, never stored. CloseDate is a date-only string
// (YYYY-MM-DD); ClosedAt is stamped by stage transitions into the closed
// bucket. Money fields use zero as "unset", so a deal with no commission
// rate yields zero commission.
type Deal struct {
	ID               int64
	UserID           int64
	ClientName       string
	ClientEmail      string
	ClientPhone      string
	PropertyAddress  string
	DealType         DealType
	Status           LifecycleStage
	PipelineStatusID int64
	LeadSourceID     *int64
	ArchiveReason    string

	ExpectedSalePrice   float64
	ActualSalePrice     float64
	GrossCommissionRate float64
	BrokerageSplitRate  float64
	ReferralOutRate     float64
	TransactionFee      float64

	SortOrder      int
	CloseDate      string
	StageEnteredAt time.Time
	ClosedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time

	// Optional joined rows, populated only at the query boundary.
	PipelineStatus *PipelineStatus
	LeadSource     *LeadSource
}

// DealStageEvent records a transition into a pipeline stage. The funnel
// analytics are defined over these events, not over current stage.
type DealStageEvent struct {
	ID           int64
	DealID       int64
	FromStatusID *int64
	ToStatusID   int64
	FromStage    LifecycleStage
	ToStage      LifecycleStage
	OccurredAt   time.Time
}

type Task struct {
	ID        int64
	DealID    *int64
	UserID    int64
	Title     string
	DueDate   string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// WorkspaceSettings holds workspace-level configuration, including the
// annual GCI goal used by the pace projection.
type WorkspaceSettings struct {
	BusinessName  string
	CurrencyCode  string
	AnnualGCIGoal float64
	UpdatedAt     time.Time
}
