package models

import "time"

// Book represents a rentable title in the catalog
type Book struct {
	ID         int64     `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Author     *string   `db:"author" json:"author,omitempty"`
	DailyPrice float64   `db:"daily_price" json:"daily_price"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// User represents a library member or staff account
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	Role           string    `db:"role" json:"role"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Order represents a book rental through its lifecycle
type Order struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	Status     string     `db:"status" json:"status"`
	BookedAt   time.Time  `db:"booked_at" json:"booked_at"`
	TakenAt    *time.Time `db:"taken_at" json:"taken_at,omitempty"`
	ReturnedAt *time.Time `db:"returned_at" json:"returned_at,omitempty"`
	DueDate    *time.Time `db:"due_date" json:"due_date,omitempty"`
	Rating     *int       `db:"rating" json:"rating,omitempty"`
	Penalty    float64    `db:"penalty" json:"penalty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Order statuses
const (
	OrderStatusBooked    = "BOOKED"
	OrderStatusTaken     = "TAKEN"
	OrderStatusReturned  = "RETURNED"
	OrderStatusCancelled = "CANCELLED"
)

// User roles
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleUser     = "user"
)

// Caller identifies the authenticated principal behind a request.
// Identity is established by the external auth gateway; this service
// only authorizes role and ownership.
type Caller struct {
	ID   int64
	Role string
}

// IsStaff reports whether the caller may manage inventory and view all orders.
func (c Caller) IsStaff() bool {
	return c.Role == RoleAdmin || c.Role == RoleOperator
}

// IsActive reports whether the order still holds the book for the user.
func (o *Order) IsActive() bool {
	return o.Status == OrderStatusBooked || o.Status == OrderStatusTaken
}
