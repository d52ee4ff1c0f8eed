package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentInstapay PaymentMethod = "Instapay"
	PaymentTelda    PaymentMethod = "Telda"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentInstapay || m == PaymentTelda
}

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleSecurity Role = "SECURITY"
)

// User holds profile data only; financial and security data live in the
// ticket-linked tables.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Instagram string `json:"instagram"`
	Phone     string `json:"phone"`
}

// Wave is a priced capacity tier. At most one wave is active for new
// registrations at a time.
type Wave struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Deduction  decimal.Decimal `json:"deduction"`
	MaxTickets int             `json:"max_tickets"`
	SoldCount  int             `json:"sold_count"`
	Active     bool            `json:"active"`
}

func (w Wave) Full() bool {
	return w.SoldCount >= w.MaxTickets
}

// Ticket anchors the transaction: one row per registration, referencing the
// guest profile and the wave it was sold against. Number is the sequential
// display id shown at the door; it is never reused after deletion.
type Ticket struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	UserID    string    `json:"user_id"`
	WaveID    string    `json:"wave_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketSecurity carries the three scan tokens. They are generated once at
// registration and never change.
type TicketSecurity struct {
	TicketID     string `json:"ticket_id"`
	QRToken      string `json:"qr_token"`
	QREntryToken string `json:"qr_entry_token"`
	QRExitToken  string `json:"qr_exit_token"`
}

// TicketStatus is the only entity mutated by lifecycle events. CheckedIn and
// CheckedOut are monotone: false to true only, reset only by full deletion.
type TicketStatus struct {
	TicketID     string     `json:"ticket_id"`
	Approved     bool       `json:"approved"`
	CheckedIn    bool       `json:"checked_in"`
	CheckinTime  *time.Time `json:"checkin_time"`
	CheckedOut   bool       `json:"checked_out"`
	CheckoutTime *time.Time `json:"checkout_time"`
	ScanCount    int        `json:"scan_count"`
}

type Payment struct {
	TicketID   string          `json:"ticket_id"`
	Method     PaymentMethod   `json:"method"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	ProofRef   string          `json:"proof_ref"`
}

// Expense is an independent ledger entry with no ticket linkage.
type Expense struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
	CreatedAt time.Time       `json:"created_at"`
}

type Admin struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         Role   `json:"role"`
}

// Principal is the session identity derived from an Admin at login.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Guest is the read-model joining the five per-ticket tables plus the owning
// wave. It is computed on read and never persisted. Fields are spelled out
// rather than embedded so no table can silently shadow another.
type Guest struct {
	TicketID  string    `json:"ticket_id"`
	Number    int       `json:"number"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Instagram string    `json:"instagram"`
	Phone     string    `json:"phone"`
	WaveID    string    `json:"wave_id"`
	WaveName  string    `json:"wave_name"`
	CreatedAt time.Time `json:"created_at"`

	QRToken      string `json:"qr_token"`
	QREntryToken string `json:"qr_entry_token"`
	QRExitToken  string `json:"qr_exit_token"`

	Approved     bool       `json:"approved"`
	CheckedIn    bool       `json:"checked_in"`
	CheckinTime  *time.Time `json:"checkin_time"`
	CheckedOut   bool       `json:"checked_out"`
	CheckoutTime *time.Time `json:"checkout_time"`
	ScanCount    int        `json:"scan_count"`

	Method     PaymentMethod   `json:"payment_method"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	ProofRef   string          `json:"proof_ref"`

	// Profit split, derived from the wave: remainder = price - deduction,
	// share = remainder / 3. Misarah keeps the deduction on top of a share.
	MisarahProfit decimal.Decimal `json:"misarah_profit"`
	DomzProfit    decimal.Decimal `json:"domz_profit"`
	SateaProfit   decimal.Decimal `json:"satea_profit"`
}

// ScanResult is returned by every check-in/check-out attempt, success or
// failure. Reuse marks a token whose transition already happened; callers
// are expected to alarm loudly on it.
type ScanResult struct {
	OK      bool   `json:"success"`
	Message string `json:"message"`
	Reuse   bool   `json:"is_reuse"`
}
