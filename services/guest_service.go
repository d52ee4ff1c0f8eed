package services

import (
	"fmt"
	"strings"

	"flux-parties/internal/status"
	"flux-parties/models"
	"flux-parties/repo"
	"flux-parties/store"

	"github.com/shopspring/decimal"
)

var three = decimal.NewFromInt(3)

// GuestService is the read side: it joins the five per-ticket tables plus the
// owning wave into Guest aggregates. It is the only reader the rest of the
// system goes through.
type GuestService struct {
	repo *repo.Repo
}

func NewGuestService(r *repo.Repo) *GuestService {
	return &GuestService{repo: r}
}

// ListGuests produces one Guest per ticket, in ticket order. A ticket with a
// missing linked row fails the whole call with ErrBrokenLink: one broken link
// means the store has seen a partial write, and serving the remaining guests
// would hide it.
func (s *GuestService) ListGuests() ([]models.Guest, error) {
	snapshot, err := s.repo.Store.ReadTables(
		store.TableTickets, store.TableUsers, store.TableSecurity,
		store.TableStatus, store.TablePayments, store.TableWaves,
	)
	if err != nil {
		return nil, err
	}
	return joinGuests(snapshot)
}

// FindGuestByToken matches a decoded scan string against any of the three
// tokens of any guest. Not-found is a normal outcome, not an error.
func (s *GuestService) FindGuestByToken(token string) (models.Guest, bool, error) {
	clean := CleanToken(token)
	if clean == "" {
		return models.Guest{}, false, nil
	}

	guests, err := s.ListGuests()
	if err != nil {
		return models.Guest{}, false, err
	}
	for _, g := range guests {
		if g.QRToken == clean || g.QREntryToken == clean || g.QRExitToken == clean {
			return g, true, nil
		}
	}
	return models.Guest{}, false, nil
}

// CleanToken normalizes a decoded token the way the scanner hands them over:
// surrounding whitespace trimmed, letters upper-cased.
func CleanToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

func joinGuests(snapshot map[string][]byte) ([]models.Guest, error) {
	tickets, err := repo.DecodeRows[models.Ticket](store.TableTickets, snapshot)
	if err != nil {
		return nil, err
	}
	users, err := repo.DecodeRows[models.User](store.TableUsers, snapshot)
	if err != nil {
		return nil, err
	}
	security, err := repo.DecodeRows[models.TicketSecurity](store.TableSecurity, snapshot)
	if err != nil {
		return nil, err
	}
	statuses, err := repo.DecodeRows[models.TicketStatus](store.TableStatus, snapshot)
	if err != nil {
		return nil, err
	}
	payments, err := repo.DecodeRows[models.Payment](store.TablePayments, snapshot)
	if err != nil {
		return nil, err
	}
	waves, err := repo.DecodeRows[models.Wave](store.TableWaves, snapshot)
	if err != nil {
		return nil, err
	}

	usersByID := make(map[string]models.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}
	securityByTicket := make(map[string]models.TicketSecurity, len(security))
	for _, sec := range security {
		securityByTicket[sec.TicketID] = sec
	}
	statusByTicket := make(map[string]models.TicketStatus, len(statuses))
	for _, st := range statuses {
		statusByTicket[st.TicketID] = st
	}
	paymentByTicket := make(map[string]models.Payment, len(payments))
	for _, p := range payments {
		paymentByTicket[p.TicketID] = p
	}
	wavesByID := make(map[string]models.Wave, len(waves))
	for _, w := range waves {
		wavesByID[w.ID] = w
	}

	guests := make([]models.Guest, 0, len(tickets))
	for _, t := range tickets {
		u, ok := usersByID[t.UserID]
		if !ok {
			return nil, brokenLink(t.ID, store.TableUsers)
		}
		sec, ok := securityByTicket[t.ID]
		if !ok {
			return nil, brokenLink(t.ID, store.TableSecurity)
		}
		st, ok := statusByTicket[t.ID]
		if !ok {
			return nil, brokenLink(t.ID, store.TableStatus)
		}
		pay, ok := paymentByTicket[t.ID]
		if !ok {
			return nil, brokenLink(t.ID, store.TablePayments)
		}
		w, ok := wavesByID[t.WaveID]
		if !ok {
			return nil, brokenLink(t.ID, store.TableWaves)
		}
		guests = append(guests, composeGuest(t, u, sec, st, pay, w))
	}
	return guests, nil
}

func brokenLink(ticketID, table string) error {
	return fmt.Errorf("%w: ticket %s has no %s row", status.ErrBrokenLink, ticketID, table)
}

// composeGuest flattens the joined rows and derives the profit split:
// remainder = price - deduction, share = remainder / 3 (2 decimal places),
// misarah keeps the deduction on top of a share.
func composeGuest(t models.Ticket, u models.User, sec models.TicketSecurity,
	st models.TicketStatus, pay models.Payment, w models.Wave) models.Guest {

	share := w.Price.Sub(w.Deduction).Div(three).Round(2)

	return models.Guest{
		TicketID:  t.ID,
		Number:    t.Number,
		UserID:    u.ID,
		Name:      u.Name,
		Instagram: u.Instagram,
		Phone:     u.Phone,
		WaveID:    w.ID,
		WaveName:  w.Name,
		CreatedAt: t.CreatedAt,

		QRToken:      sec.QRToken,
		QREntryToken: sec.QREntryToken,
		QRExitToken:  sec.QRExitToken,

		Approved:     st.Approved,
		CheckedIn:    st.CheckedIn,
		CheckinTime:  st.CheckinTime,
		CheckedOut:   st.CheckedOut,
		CheckoutTime: st.CheckoutTime,
		ScanCount:    st.ScanCount,

		Method:     pay.Method,
		AmountDue:  pay.AmountDue,
		AmountPaid: pay.AmountPaid,
		ProofRef:   pay.ProofRef,

		MisarahProfit: w.Deduction.Add(share),
		DomzProfit:    share,
		SateaProfit:   share,
	}
}
