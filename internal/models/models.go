package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Tenant is the isolation boundary. Every other row reaches exactly one
// tenant through its event or a direct foreign key.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,unique,notnull" json:"name"`
	Domain    string    `bun:"domain,unique,notnull" json:"domain"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Username     string    `bun:"username,unique,notnull" json:"username"`
	Email        string    `bun:"email,notnull" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         string    `bun:"role,notnull,default:'user'" json:"role"`
	TenantID     int64     `bun:"tenant_id,notnull" json:"tenant"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type Event struct {
	bun.BaseModel `bun:"table:events,alias:event"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Description string    `bun:"description" json:"description"`
	Date        time.Time `bun:"date,notnull" json:"date"`
	Location    string    `bun:"location" json:"location"`
	Capacity    int       `bun:"capacity,notnull" json:"capacity"`
	TenantID    int64     `bun:"tenant_id,notnull" json:"tenant"`
	CreatedBy   int64     `bun:"created_by,notnull" json:"created_by"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

type SubEvent struct {
	bun.BaseModel `bun:"table:sub_events,alias:sub_event"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	EventID     int64     `bun:"event_id,notnull" json:"event"`
	Title       string    `bun:"title,notnull" json:"title"`
	Description string    `bun:"description" json:"description"`
	StartTime   time.Time `bun:"start_time,notnull" json:"start_time"`
	EndTime     time.Time `bun:"end_time,notnull" json:"end_time"`
	Capacity    int       `bun:"capacity,notnull" json:"capacity"`
}

type Team struct {
	bun.BaseModel `bun:"table:teams,alias:team"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	EventID   int64     `bun:"event_id,notnull" json:"event"`
	MinSize   int       `bun:"min_size,notnull,default:1" json:"min_size"`
	MaxSize   int       `bun:"max_size,notnull,default:10" json:"max_size"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// TeamMember is one row per (team, user). The unique pair constraint is
// what makes concurrent joins safe.
type TeamMember struct {
	bun.BaseModel `bun:"table:team_members,alias:team_member"`

	ID       int64     `bun:"id,pk,autoincrement" json:"id"`
	TeamID   int64     `bun:"team_id,notnull,unique:team_user" json:"team"`
	UserID   int64     `bun:"user_id,notnull,unique:team_user" json:"user"`
	JoinedAt time.Time `bun:"joined_at,notnull,default:current_timestamp" json:"joined_at"`
}

// Ticket is immutable once issued. TicketID is the opaque UUID clients
// dedupe on; the integer pk never leaves the store.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:ticket"`

	ID          int64     `bun:"id,pk,autoincrement" json:"-"`
	TicketID    string    `bun:"ticket_id,unique,notnull" json:"ticket_id"`
	UserID      int64     `bun:"user_id,notnull" json:"user"`
	EventID     int64     `bun:"event_id,notnull" json:"event"`
	SubEventID  *int64    `bun:"sub_event_id,nullzero" json:"sub_event,omitempty"`
	TeamID      *int64    `bun:"team_id,nullzero" json:"team,omitempty"`
	PurchasedAt time.Time `bun:"purchased_at,notnull,default:current_timestamp" json:"purchased_at"`
}

type Announcement struct {
	bun.BaseModel `bun:"table:announcements,alias:announcement"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	Content   string    `bun:"content" json:"content"`
	EventID   int64     `bun:"event_id,notnull" json:"event"`
	CreatedBy int64     `bun:"created_by,notnull" json:"created_by"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
