package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/blob"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// Wire messages. Amounts travel as decimal strings ("10.00").

type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"createdBy"`
	CreatedAt   int64  `json:"createdAt"`
}

type Member struct {
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	JoinedAt int64  `json:"joinedAt"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Participant struct {
	MemberID string           `json:"memberId"`
	Input    *decimal.Decimal `json:"input,omitempty"`
}

type Share struct {
	MemberID string           `json:"memberId"`
	Owed     money.Money      `json:"owed"`
	Input    *decimal.Decimal `json:"input,omitempty"`
}

type Expense struct {
	ID          string      `json:"id"`
	GroupID     string      `json:"groupId"`
	Description string      `json:"description"`
	Total       money.Money `json:"total"`
	Strategy    string      `json:"strategy"`
	PayerID     string      `json:"payerId"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   int64       `json:"createdAt"`
	Shares      []Share     `json:"shares"`
}

// GroupService messages.

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CreateGroupResponse struct {
	Group Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group   Group    `json:"group"`
	Members []Member `json:"members"`
}

type UpdateGroupRequest struct {
	GroupID     string `json:"groupId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UpdateGroupResponse struct {
	Group Group `json:"group"`
}

type AddMemberRequest struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

type AddMemberByEmailRequest struct {
	GroupID string `json:"groupId"`
	Email   string `json:"email"`
}

type AddMemberResponse struct {
	Member Member `json:"member"`
}

// InviteService messages.

type InviteCodeRequest struct {
	GroupID string `json:"groupId"`
}

type InviteCodeResponse struct {
	// Code is empty from GetInviteCode until one has been generated.
	Code string `json:"code"`
}

type RedeemInviteCodeRequest struct {
	Code string `json:"code"`
}

type RedeemInviteCodeResponse struct {
	Group         Group `json:"group"`
	AlreadyMember bool  `json:"alreadyMember"`
}

// ExpenseService messages.

type PreviewSplitRequest struct {
	Total        money.Money   `json:"total"`
	Strategy     string        `json:"strategy"`
	Participants []Participant `json:"participants"`
}

type PreviewSplitResponse struct {
	Shares []Share `json:"shares"`
}

type CreateExpenseRequest struct {
	GroupID      string        `json:"groupId"`
	Description  string        `json:"description"`
	Total        money.Money   `json:"total"`
	PayerID      string        `json:"payerId"`
	Strategy     string        `json:"strategy"`
	Participants []Participant `json:"participants"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type ExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID string `json:"groupId"`
}

type ListExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

// UserService messages.

type GetCurrentUserRequest struct{}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type SearchUsersByEmailRequest struct {
	Email string `json:"email"`
}

type SearchUsersByEmailResponse struct {
	Users []User `json:"users"`
}

type GenerateUploadURLRequest struct{}

type GenerateUploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	Ref       string `json:"ref"`
}

type SetProfileImageRequest struct {
	// Ref is the reference returned by GenerateUploadURL; empty clears the image.
	Ref string `json:"ref"`
}

type UserResponse struct {
	User User `json:"user"`
}

// Conversions from domain models.

func toGroup(g *models.Group) Group {
	return Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
	}
}

func toGroups(groups []*models.Group) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = toGroup(g)
	}
	return out
}

func toMember(m models.Membership, user *models.User) Member {
	member := Member{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt}
	if user != nil {
		member.Name = user.Name
		member.Email = user.Email
	}
	return member
}

func toUser(u *models.User) User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

func toProfile(p *models.Profile) User {
	user := toUser(&p.User)
	user.ImageURL = p.ImageURL
	return user
}

func toExpense(e *models.Expense) Expense {
	shares := make([]Share, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = Share{MemberID: s.MemberID, Owed: s.Owed, Input: s.Input}
	}
	return Expense{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Total:       e.Total,
		Strategy:    string(e.Strategy),
		PayerID:     e.PayerID,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		Shares:      shares,
	}
}

func toShares(shares []calculator.Share) []Share {
	out := make([]Share, len(shares))
	for i, s := range shares {
		out[i] = Share{MemberID: s.MemberID, Owed: s.Owed}
	}
	return out
}

func toParticipants(in []Participant) []models.ParticipantInput {
	out := make([]models.ParticipantInput, len(in))
	for i, p := range in {
		out[i] = models.ParticipantInput{MemberID: p.MemberID, Input: p.Input}
	}
	return out
}

func toJoinResponse(res *ledger.JoinResult) *RedeemInviteCodeResponse {
	return &RedeemInviteCodeResponse{Group: toGroup(res.Group), AlreadyMember: res.AlreadyMember}
}

func toUploadResponse(u blob.Upload) *GenerateUploadURLResponse {
	return &GenerateUploadURLResponse{UploadURL: u.URL, Ref: u.Ref}
}
