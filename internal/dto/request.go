package dto

type LoginRequest struct {
	Mobile   string `json:"mobile" validate:"required,min=8,max=15"`
	Password string `json:"password" validate:"required,min=8"`
}

type CreateUserRequest struct {
	Mobile   string `json:"mobile" validate:"required,min=8,max=15"`
	FullName string `json:"full_name" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

type CreateLoanRequest struct {
	CustomerID       uint64  `json:"customer_id" validate:"required"`
	AgentID          uint64  `json:"agent_id" validate:"required"`
	PrincipalAmount  float64 `json:"principal_amount" validate:"required,gt=0"`
	InstallmentCount int     `json:"installment_count" validate:"required,gte=1,lte=120"`
	FirstDueDate     string  `json:"first_due_date" validate:"required,datetime=2006-01-02"`
}

type RecordPaymentRequest struct {
	EmiID uint64 `json:"emi_id" validate:"required"`
}
